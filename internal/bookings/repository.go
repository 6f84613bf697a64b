package bookings

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/utils/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketFilter narrows ticket listings. UserID nil lists every user's tickets.
type TicketFilter struct {
	UserID   *uuid.UUID
	FlightID *uuid.UUID
	Status   TicketStatus
	Page     int
	Limit    int
}

type Repository interface {
	// Ledger writes
	CreateTransaction(ctx context.Context, txn *TicketTransaction) error
	CreateTickets(ctx context.Context, tickets []Ticket) error
	MarkTicketCancelled(ctx context.Context, ticketID uuid.UUID, now time.Time) (bool, error)
	RecordRefund(ctx context.Context, transactionID uuid.UUID, amount float64) error

	// Reads
	GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetTicketsByRequestID(ctx context.Context, requestID string) ([]Ticket, error)
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*TicketTransaction, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return transaction.Conn(ctx, r.db)
}

func (r *repository) CreateTransaction(ctx context.Context, txn *TicketTransaction) error {
	if err := r.conn(ctx).Omit("Tickets").Create(txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Newf(apperr.KindIdempotencyConflict, "request id %s already has a transaction", txn.RequestID)
		}
		return apperr.FromStorage(err)
	}
	return nil
}

func (r *repository) CreateTickets(ctx context.Context, tickets []Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	if err := r.conn(ctx).Create(&tickets).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.InvalidState("a seat in this booking already has an active ticket")
		}
		return apperr.FromStorage(err)
	}
	return nil
}

// MarkTicketCancelled flips an ACTIVE ticket to CANCELLED. false means the ticket
// was not active anymore.
func (r *repository) MarkTicketCancelled(ctx context.Context, ticketID uuid.UUID, now time.Time) (bool, error) {
	result := r.conn(ctx).Model(&Ticket{}).
		Where("id = ? AND status = ?", ticketID, TicketActive).
		Updates(map[string]interface{}{
			"status":       TicketCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RecordRefund adds amount to the refunded total and derives the status in the
// same statement.
func (r *repository) RecordRefund(ctx context.Context, transactionID uuid.UUID, amount float64) error {
	result := r.conn(ctx).Model(&TicketTransaction{}).
		Where("id = ? AND refunded_amount + ? <= gross_amount + 0.005", transactionID, amount).
		Updates(map[string]interface{}{
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
			"status": gorm.Expr("CASE WHEN refunded_amount + ? >= gross_amount - 0.005 THEN ? ELSE ? END",
				amount, TransactionRefunded, TransactionPartiallyRefunded),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return apperr.FromStorage(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.InvalidState("refund exceeds the captured amount")
	}
	return nil
}

func (r *repository) GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	err := r.conn(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.KindTicketNotFound, "ticket %s not found", id)
		}
		return nil, apperr.FromStorage(err)
	}
	return &ticket, nil
}

func (r *repository) GetTicketsByRequestID(ctx context.Context, requestID string) ([]Ticket, error) {
	var tickets []Ticket
	err := r.conn(ctx).
		Where("request_id = ?", requestID).
		Order("seat_label ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return tickets, nil
}

func (r *repository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*TicketTransaction, error) {
	var txn TicketTransaction
	err := r.conn(ctx).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat_label ASC")
		}).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.KindTicketNotFound, "transaction %s not found", id)
		}
		return nil, apperr.FromStorage(err)
	}
	return &txn, nil
}

func (r *repository) ListTickets(ctx context.Context, filter TicketFilter) ([]Ticket, int64, error) {
	var tickets []Ticket
	var totalCount int64

	page, limit := pagination.Normalize(filter.Page, filter.Limit)

	baseQuery := r.applyFilters(r.conn(ctx).Model(&Ticket{}), filter)

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, apperr.FromStorage(err)
	}

	err := baseQuery.
		Order("created_at DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, apperr.FromStorage(err)
	}

	return tickets, totalCount, nil
}

// applyFilters applies query filters to the GORM query
func (r *repository) applyFilters(query *gorm.DB, filter TicketFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.FlightID != nil {
		query = query.Where("flight_id = ?", *filter.FlightID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}
