package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/granada-sport/server/internal/model"
)

type registerReq struct {
	Email          string  `json:"email" validate:"required,email,max=255"`
	Name           string  `json:"name" validate:"required,max=100"`
	LastName       string  `json:"lastName" validate:"required,max=100"`
	SecondLastName *string `json:"secondLastName" validate:"omitempty,max=100"`
	Password       string  `json:"password" validate:"required,min=8,max=20"`
}

type profileReq struct {
	Email          string  `json:"email" validate:"required,email,max=255"`
	Name           string  `json:"name" validate:"required,max=100"`
	LastName       string  `json:"lastName" validate:"required,max=100"`
	SecondLastName *string `json:"secondLastName" validate:"omitempty,max=100"`
}

func (r *registerReq) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.LastName = strings.TrimSpace(r.LastName)
	r.SecondLastName = trimPtr(r.SecondLastName)
}

func (r *profileReq) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.LastName = strings.TrimSpace(r.LastName)
	r.SecondLastName = trimPtr(r.SecondLastName)
}

// trimPtr trims s and maps a blank value to nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type passwordReq struct {
	Password string `json:"password" validate:"required,min=8,max=20"`
}

// loginReq accepts the OAuth2 password form (username/password) as well as
// the same fields in JSON.
type loginReq struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type eventReq struct {
	Description string    `json:"description" validate:"required,min=1,max=300"`
	Date        eventTime `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required,min=1,max=300"`
	Sport       string    `json:"sport" validate:"required,min=1,max=100"`
}

func (r *eventReq) trim() {
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.Sport = strings.TrimSpace(r.Sport)
}

func (r eventReq) details() model.EventDetails {
	return model.EventDetails{
		Description: r.Description,
		Date:        r.Date.UTC(),
		Location:    r.Location,
		Sport:       r.Sport,
	}
}

// naiveLayouts are ISO datetimes without an offset; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

var errBadDate = errors.New("date must be an ISO 8601 datetime")

// eventTime decodes RFC 3339 timestamps and offset-less ISO datetimes.
type eventTime struct {
	time.Time
}

func (t *eventTime) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return errBadDate
	}
	raw = strings.TrimSpace(raw)
	if v, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = v
		return nil
	}
	for _, layout := range naiveLayouts {
		if v, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = v
			return nil
		}
	}
	return errBadDate
}

type userResp struct {
	ID             uint64  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	LastName       string  `json:"lastName"`
	SecondLastName *string `json:"secondLastName"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		LastName:       u.LastName,
		SecondLastName: u.SecondLastName,
	}
}

type eventResp struct {
	ID          uint64    `json:"id"`
	OrganizerID uint64    `json:"organizer_id"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Sport       string    `json:"sport"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		Sport:       e.Sport,
	}
}

func toEventResps(events []model.Event) []eventResp {
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return out
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// jsonName reports struct fields by their JSON name in validation errors.
func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
