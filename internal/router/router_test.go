package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/database/dbtest"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/service"
	"github.com/iliyamo/flight-booking/internal/utils"
)

const secret = "router-test-secret"

type api struct {
	t       *testing.T
	e       *echo.Echo
	admin   string
	flights int
}

func newAPI(t *testing.T) *api {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db)
	flights := repository.NewFlightRepo(db)
	reservations := repository.NewReservationRepo(db)
	tickets := repository.NewTicketRepo(db)
	booking := service.NewBookingService(db, service.Repos{
		Users: users, Flights: flights, Reservations: reservations, Tickets: tickets,
	}, service.Options{})

	e := New(Deps{
		DB:        db,
		Users:     users,
		Templates: repository.NewTemplateFlightRepo(db),
		Flights:   flights,
		Booking:   booking,
		JWTSecret: secret,
		Timeout:   time.Second,
	})
	tok, err := utils.NewAccessToken(secret, "ops", utils.RoleAdmin, time.Minute)
	require.NoError(t, err)
	return &api{t: t, e: e, admin: tok.Token}
}

func (a *api) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if admin {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.admin)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// item decodes {"item": ...} into a generic map.
func item(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Item map[string]any `json:"item"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Item
}

func items(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var env struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Items
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func (a *api) seedFlight(total, left int) (templateID, flightID string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/template-flights",
		`{"origin":"Oulu","destination":"Helsinki","dep_time":"06:00","arr_time":"07:05"}`, true)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	templateID = jsonID(item(a.t, rec))

	a.flights++
	code := "AY4" + itoa(31+a.flights)
	body := `{"code":"` + code + `","gate":"GATE12","price":12900,"dep_date":"2026-12-01","arr_date":"2026-12-01",` +
		`"total_seats":` + itoa(total) + `,"seats_left":` + itoa(left) + `,"template_id":` + templateID + `}`
	rec = a.do(http.MethodPost, "/v1/flights", body, true)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	flightID = jsonID(item(a.t, rec))
	assert.Equal(a.t, "/v1/flights/"+flightID, rec.Header().Get(echo.HeaderLocation))
	return templateID, flightID
}

func (a *api) seedUser(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/users",
		`{"last_name":"Doe","first_name":"Jo","email":"`+email+`","birth_date":"1990-04-02T00:00:00Z"}`, false)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return jsonID(item(a.t, rec))
}

func jsonID(m map[string]any) string { return jsonNumber(m["id"]) }

func jsonNumber(v any) string { return itoa(int(v.(float64))) }

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	a := newAPI(t)
	body := `{"origin":"A","destination":"B","dep_time":"10:00","arr_time":"11:00"}`

	rec := a.do(http.MethodPost, "/v1/template-flights", body, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/template-flights", body, true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/v1/template-flights", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, items(t, rec), 1)

	rec = a.do(http.MethodGet, "/v1/does-not-exist", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlightValidationAndConstraints(t *testing.T) {
	a := newAPI(t)
	tid, fid := a.seedFlight(90, 10)

	bad := `{"code":"X1","gate":"G1","price":1,"dep_date":"2026-12-01","arr_date":"2026-12-01","total_seats":5,"template_id":` + tid + `}`
	rec := a.do(http.MethodPost, "/v1/flights", bad, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "gate")

	dup := `{"code":"AY432","gate":"GATE01","price":1,"dep_date":"2026-12-01","arr_date":"2026-12-01","total_seats":5,"template_id":` + tid + `}`
	rec = a.do(http.MethodPost, "/v1/flights", dup, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	overfull := `{"code":"Z9","gate":"GATE01","price":1,"dep_date":"2026-12-01","arr_date":"2026-12-01","total_seats":5,"seats_left":6,"template_id":` + tid + `}`
	rec = a.do(http.MethodPost, "/v1/flights", overfull, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	orphan := `{"code":"Z8","gate":"GATE01","price":1,"dep_date":"2026-12-01","arr_date":"2026-12-01","total_seats":5,"template_id":999}`
	rec = a.do(http.MethodPost, "/v1/flights", orphan, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// update never touches the inventory
	upd := `{"code":"AY433","gate":"GATE02","price":15000,"dep_date":"2026-12-02","arr_date":"2026-12-02","total_seats":1,"seats_left":0,"template_id":` + tid + `}`
	rec = a.do(http.MethodPut, "/v1/flights/"+fid, upd, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := item(t, rec)
	assert.Equal(t, "AY433", f["code"])
	assert.Equal(t, float64(90), f["total_seats"])
	assert.Equal(t, float64(10), f["seats_left"])

	rec = a.do(http.MethodGet, "/v1/flights/code/AY433", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodGet, "/v1/template-flights/"+tid+"/flights", "", false)
	assert.Len(t, items(t, rec), 1)
}

func TestUserLifecycle(t *testing.T) {
	a := newAPI(t)
	uid := a.seedUser("Jo@Example.com")

	rec := a.do(http.MethodGet, "/v1/users/"+uid, "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	u := item(t, rec)
	assert.Equal(t, "1990-04-02", u["birth_date"])
	assert.Equal(t, "jo@example.com", u["email"])

	rec = a.do(http.MethodPost, "/v1/users",
		`{"last_name":"X","first_name":"Y","email":"jo@example.com","birth_date":"1990-01-01"}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/users", `{"last_name":"X"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/v1/users/"+uid,
		`{"last_name":"Roe","first_name":"Jo","email":"jo@example.com","birth_date":"1990-04-02","phone_number":"+358 40 1"}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Roe", item(t, rec)["last_name"])

	rec = a.do(http.MethodGet, "/v1/users/abc", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/users/"+uid, "", false)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodDelete, "/v1/users/"+uid, "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	_, fid := a.seedFlight(90, 10)
	uid := a.seedUser("jo@example.com")

	rec := a.do(http.MethodPost, "/v1/reservations", `{"user_id":`+uid+`,"flight_id":`+fid+`}`, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := item(t, rec)
	rid := jsonID(res)
	assert.Regexp(t, `^[0-9A-F]{10}$`, res["reference"])
	assert.Equal(t, "/v1/reservations/"+rid, rec.Header().Get(echo.HeaderLocation))

	rec = a.do(http.MethodPost, "/v1/reservations", `{"user_id":`+uid+`,"flight_id":`+fid+`}`, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/reservations", `{"user_id":999,"flight_id":`+fid+`}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/reservations/"+rid+"/tickets",
		`{"first_name":"Jo","last_name":"Doe","gender":"x","age":36}`, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := item(t, rec)
	assert.Equal(t, "81", tk["seat"])
	tid := jsonID(tk)

	rec = a.do(http.MethodGet, "/v1/flights/"+fid+"/seats", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(9), item(t, rec)["seats_left"])

	rec = a.do(http.MethodPut, "/v1/tickets/"+tid, `{"first_name":"Alex","last_name":"Doe","age":37}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alex", item(t, rec)["first_name"])
	assert.Equal(t, "81", item(t, rec)["seat"])

	rec = a.do(http.MethodPost, "/v1/reservations/999/tickets", `{"first_name":"A","last_name":"B","age":1}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/v1/users/"+uid+"/reservations", "", false)
	assert.Len(t, items(t, rec), 1)
	rec = a.do(http.MethodGet, "/v1/reservations?flight_id="+fid, "", false)
	assert.Len(t, items(t, rec), 1)
	rec = a.do(http.MethodGet, "/v1/reservations?user_id=abc", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/reservations/"+rid, "", false)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/v1/tickets/"+tid, "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/v1/flights/"+fid+"/seats", "", false)
	assert.Equal(t, float64(9), item(t, rec)["seats_left"])
}

func TestUpdateReservation(t *testing.T) {
	a := newAPI(t)
	_, f1 := a.seedFlight(10, 10)
	_, f2 := a.seedFlight(10, 10)
	ann, bob := a.seedUser("ann@example.com"), a.seedUser("bob@example.com")

	rec := a.do(http.MethodPost, "/v1/reservations", `{"user_id":`+ann+`,"flight_id":`+f1+`}`, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rid := jsonID(item(t, rec))
	rec = a.do(http.MethodPost, "/v1/reservations",
		`{"user_id":`+bob+`,"flight_id":`+f2+`,"passengers":[{"first_name":"B","last_name":"Doe","age":30}]}`, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticketed := jsonID(item(t, rec))

	rec = a.do(http.MethodPut, "/v1/reservations/"+rid, `{"reference":"abc123def0","user_id":`+ann+`,"flight_id":`+f2+`}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := item(t, rec)
	assert.Equal(t, "ABC123DEF0", got["reference"])
	assert.Equal(t, f2, jsonNumber(got["flight_id"]))

	cases := []struct {
		name, id, body string
		want           int
	}{
		{"unknown reservation", "999", `{"user_id":` + ann + `,"flight_id":` + f1 + `}`, http.StatusNotFound},
		{"bad id", "abc", `{"user_id":` + ann + `,"flight_id":` + f1 + `}`, http.StatusBadRequest},
		{"missing flight_id", rid, `{"user_id":` + ann + `}`, http.StatusBadRequest},
		{"unknown user", rid, `{"user_id":999,"flight_id":` + f1 + `}`, http.StatusBadRequest},
		{"pair taken", rid, `{"user_id":` + bob + `,"flight_id":` + f2 + `}`, http.StatusConflict},
		{"reference taken", ticketed, `{"reference":"ABC123DEF0","user_id":` + bob + `,"flight_id":` + f2 + `}`, http.StatusConflict},
		{"ticketed move", ticketed, `{"user_id":` + bob + `,"flight_id":` + f1 + `}`, http.StatusConflict},
		{"bad reference", rid, `{"reference":"no spaces!","user_id":` + ann + `,"flight_id":` + f1 + `}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(http.MethodPut, "/v1/reservations/"+tc.id, tc.body, false)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestReservationWithPassengersIsAllOrNothing(t *testing.T) {
	a := newAPI(t)
	_, fid := a.seedFlight(3, 1)
	uid := a.seedUser("jo@example.com")

	body := `{"user_id":` + uid + `,"flight_id":` + fid + `,"passengers":[` +
		`{"first_name":"A","last_name":"Doe","age":30},{"first_name":"B","last_name":"Doe","age":4}]}`
	rec := a.do(http.MethodPost, "/v1/reservations", body, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, repository.ErrNoMoreSeats.Error(), errorOf(t, rec))

	rec = a.do(http.MethodGet, "/v1/reservations", "", false)
	assert.Empty(t, items(t, rec))

	body = `{"user_id":` + uid + `,"flight_id":` + fid + `,"passengers":[{"first_name":"A","last_name":"Doe","age":30}]}`
	rec = a.do(http.MethodPost, "/v1/reservations", body, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env struct {
		Tickets []map[string]any `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Tickets, 1)
	assert.Equal(t, "3", env.Tickets[0]["seat"])

	bad := `{"user_id":` + uid + `,"flight_id":` + fid + `,"passengers":[{"first_name":"","last_name":"Doe","age":-1}]}`
	rec = a.do(http.MethodPost, "/v1/reservations", bad, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateDeleteCascades(t *testing.T) {
	a := newAPI(t)
	tid, fid := a.seedFlight(5, 5)
	uid := a.seedUser("jo@example.com")
	rec := a.do(http.MethodPost, "/v1/reservations", `{"user_id":`+uid+`,"flight_id":`+fid+`}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodDelete, "/v1/template-flights/"+tid, "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/v1/flights/"+fid, "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/v1/reservations", "", false)
	assert.Empty(t, items(t, rec))
}
