package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

// AdminRecipient addresses the shared back-office inbox.
const AdminRecipient = "admin"

// Inbox selects whose notifications are read. Customer inboxes are keyed by email.
type Inbox struct {
	Audience  enums.NotificationAudience
	Recipient string
}

// AdminInbox is the shared administrator inbox.
func AdminInbox() Inbox {
	return Inbox{Audience: enums.AudienceAdmin, Recipient: AdminRecipient}
}

// CustomerInbox addresses the notifications sent to one customer email.
func CustomerInbox(email string) Inbox {
	return Inbox{Audience: enums.AudienceCustomer, Recipient: strings.ToLower(strings.TrimSpace(email))}
}

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, inbox Inbox, id int64) error
	MarkAllRead(ctx context.Context, inbox Inbox) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Inbox      Inbox
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := checkInbox(params.Inbox); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		Inbox:      params.Inbox,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	items, next := pagination.Page(rows, params.Limit, func(n models.Notification) int64 { return n.ID })
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) MarkRead(ctx context.Context, inbox Inbox, id int64) error {
	if err := checkInbox(inbox); err != nil {
		return err
	}
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, inbox, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, inbox Inbox) (int64, error) {
	if err := checkInbox(inbox); err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, inbox, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func checkInbox(inbox Inbox) error {
	switch inbox.Audience {
	case enums.AudienceAdmin:
		return nil
	case enums.AudienceCustomer:
		if inbox.Recipient == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown notification audience")
}
