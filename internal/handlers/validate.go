package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"promptui/internal/workflow"
)

// Validation limits for login fields.
const (
	maxEmailLen    = 254
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// pathUUID parses the named URL parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("%s must be a UUID", name)
	}
	return id, nil
}

// pathVersion parses the version URL parameter.
func pathVersion(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		return 0, badRequest("version must be an integer")
	}
	return v, nil
}

// queryInt reads an optional integer query parameter. Missing means 0.
func queryInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// parsePaging reads page and page_size.
func parsePaging(q url.Values) (page, pageSize int, err error) {
	if page, err = queryInt(q, "page"); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(q, "page_size"); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// parseListQuery reads the prompt listing parameters. Range checks are left
// to the workflow.
func parseListQuery(q url.Values) (workflow.ListQuery, error) {
	lq := workflow.ListQuery{
		Q:           q.Get("q"),
		Subcategory: strings.TrimSpace(q.Get("subcategory")),
		Status:      strings.TrimSpace(q.Get("status")),
		SortBy:      strings.TrimSpace(q.Get("sort_by")),
		SortOrder:   strings.ToLower(strings.TrimSpace(q.Get("sort_order"))),
	}
	if raw := strings.TrimSpace(q.Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return lq, badRequest("category_id must be a UUID")
		}
		lq.CategoryID = &id
	}
	var err error
	if lq.Page, lq.PageSize, err = parsePaging(q); err != nil {
		return lq, err
	}
	return lq, nil
}

// validateLogin checks login inputs and returns the first error found.
func validateLogin(email, password string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required"
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return "email is too long"
	}
	if password == "" {
		return "password is required"
	}
	if len(password) > maxPasswordLen {
		return "password is too long"
	}
	return ""
}
