package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
)

func seedNotifications(t *testing.T, conn *gorm.DB) {
	t.Helper()
	repo := NewRepository(conn)
	rows := []models.Notification{
		{EventID: uuid.New(), Audience: enums.AudienceAdmin, Recipient: AdminRecipient, Type: enums.NotificationTypeOrderPlaced, Title: "a", Message: "a"},
		{EventID: uuid.New(), Audience: enums.AudienceAdmin, Recipient: AdminRecipient, Type: enums.NotificationTypeProofSubmitted, Title: "b", Message: "b"},
		{EventID: uuid.New(), Audience: enums.AudienceAdmin, Recipient: AdminRecipient, Type: enums.NotificationTypeOrderPlaced, Title: "c", Message: "c"},
		{EventID: uuid.New(), Audience: enums.AudienceCustomer, Recipient: "amal@example.ma", Type: enums.NotificationTypePaymentApproved, Title: "d", Message: "d"},
	}
	for i := range rows {
		created, err := repo.Create(context.Background(), &rows[i])
		require.NoError(t, err)
		require.True(t, created)
	}
}

func newTestService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC) }
	return impl
}

func TestListAdminInboxPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	seedNotifications(t, conn)
	svc := newTestService(t, conn)

	first, err := svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "c", first.Items[0].Title)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "a", second.Items[0].Title)
	require.Empty(t, second.Cursor)
}

func TestCustomerInboxIsScopedByEmail(t *testing.T) {
	conn := dbtest.Open(t)
	seedNotifications(t, conn)
	svc := newTestService(t, conn)

	mine, err := svc.List(context.Background(), ListParams{Inbox: CustomerInbox(" Amal@Example.ma "), Limit: 10})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)

	other, err := svc.List(context.Background(), ListParams{Inbox: CustomerInbox("someone@example.ma"), Limit: 10})
	require.NoError(t, err)
	require.Empty(t, other.Items)

	err = svc.MarkRead(context.Background(), CustomerInbox("someone@example.ma"), mine.Items[0].ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	conn := dbtest.Open(t)
	seedNotifications(t, conn)
	svc := newTestService(t, conn)
	ctx := context.Background()

	all, err := svc.List(ctx, ListParams{Inbox: AdminInbox(), Limit: 10})
	require.NoError(t, err)
	target := all.Items[0].ID

	require.NoError(t, svc.MarkRead(ctx, AdminInbox(), target))
	require.NoError(t, svc.MarkRead(ctx, AdminInbox(), target), "marking twice is not an error")

	unread, err := svc.List(ctx, ListParams{Inbox: AdminInbox(), Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)

	count, err := svc.MarkAllRead(ctx, AdminInbox())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	err = svc.MarkRead(ctx, AdminInbox(), 999)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListRejectsBadInput(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t))

	_, err := svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Cursor: "bad"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.List(context.Background(), ListParams{Inbox: Inbox{Audience: enums.AudienceCustomer}})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteReadBeforeKeepsUnreadRows(t *testing.T) {
	conn := dbtest.Open(t)
	seedNotifications(t, conn)
	svc := newTestService(t, conn)
	ctx := context.Background()

	_, err := svc.MarkAllRead(ctx, AdminInbox())
	require.NoError(t, err)

	repo := NewRepository(conn)
	deleted, err := repo.DeleteReadBefore(ctx, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}
