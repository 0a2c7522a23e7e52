package controllers

import (
	"net/http"

	"github.com/angelmondragon/tapcards-backend/api/middleware"
	"github.com/angelmondragon/tapcards-backend/api/responses"
	"github.com/angelmondragon/tapcards-backend/api/validators"
	"github.com/angelmondragon/tapcards-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

// InboxResolver picks the inbox a request reads from.
type InboxResolver func(*http.Request) (notifications.Inbox, error)

// AdminInbox resolves every request to the shared administrator inbox.
func AdminInbox(*http.Request) (notifications.Inbox, error) {
	return notifications.AdminInbox(), nil
}

// CustomerInbox resolves to the signed-in customer's email inbox.
func CustomerInbox(r *http.Request) (notifications.Inbox, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.Email == "" {
		return notifications.Inbox{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return notifications.CustomerInbox(principal.Email), nil
}

// ListNotifications returns a page of the inbox, newest first. ?unread_only=true hides read rows.
func ListNotifications(svc notifications.Service, inboxOf InboxResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("notifications"))
			return
		}
		inbox, err := inboxOf(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			Inbox:      inbox,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unread,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MarkNotificationRead(svc notifications.Service, inboxOf InboxResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("notifications"))
			return
		}
		inbox, err := inboxOf(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), inbox, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, inboxOf InboxResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("notifications"))
			return
		}
		inbox, err := inboxOf(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.MarkAllRead(r.Context(), inbox)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": count})
	}
}
