package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domaincalendar "staybook/internal/domain/calendar"
	domainlistings "staybook/internal/domain/listings"
	domainpricing "staybook/internal/domain/pricing"
)

var ErrUnitClosed = errors.New("sqlstore: unit of work already finished")

// Factory begins one SQL transaction per unit of work.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil || f.Store.db == nil {
		return nil, errors.New("sqlstore: factory misconfigured")
	}
	var txOpts *sql.TxOptions
	if opts.ReadOnly && f.Store.dialect == Postgres {
		txOpts = &sql.TxOptions{ReadOnly: true}
	}
	tx, err := f.Store.db.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, dialect: f.Store.dialect, readOnly: opts.ReadOnly}, nil
}

// Unit wraps a *sql.Tx. Repositories handed out by it share the transaction.
type Unit struct {
	tx       *sql.Tx
	dialect  Dialect
	readOnly bool
	done     bool
}

func (u *Unit) Listings() domainlistings.Repository                 { return listingRepo{u} }
func (u *Unit) Calendar() domaincalendar.Repository                 { return calendarRepo{u} }
func (u *Unit) PriceRules() domainpricing.RuleRepository            { return ruleRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository                  { return bookingRepo{u} }
func (u *Unit) Cancellations() domainbooking.CancellationRepository { return cancellationRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                            { return outboxWriter{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	return u.tx.Commit()
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return uow.ErrReadOnly
	}
	return nil
}

func (u *Unit) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return u.tx.ExecContext(ctx, u.dialect.rebind(query), args...)
}

func (u *Unit) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if u.done {
		return nil, ErrUnitClosed
	}
	return u.tx.QueryContext(ctx, u.dialect.rebind(query), args...)
}

func (u *Unit) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return u.tx.QueryRowContext(ctx, u.dialect.rebind(query), args...)
}

var _ uow.UoWFactory = Factory{}
