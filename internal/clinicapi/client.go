package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:4006"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 300
)

var clinicTracer = otel.Tracer("dentalbook.internal.clinicapi")

// ClientConfig configures a Client. It is built once at startup from
// config.Config and shared for the lifetime of the process.
type ClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Location *time.Location
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
	// Observer, when set, receives the latency of every backend call.
	Observer LatencyObserver
}

// LatencyObserver records backend call latency. *metrics.BookingMetrics
// satisfies it.
type LatencyObserver interface {
	ObserveClinicAPI(operation, status string, seconds float64)
}

// Client wraps the clinic backend's REST resources.
type Client struct {
	httpClient *http.Client
	baseURL    string
	loc        *time.Location
	observer   LatencyObserver
	logger     *logging.Logger
}

// NewClient constructs a clinic backend client.
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		loc:        loc,
		observer:   cfg.Observer,
		logger:     logger,
	}
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ListDentists returns every dentist record with its schedule fields.
func (c *Client) ListDentists(ctx context.Context) ([]Dentist, error) {
	var dentists []Dentist
	if err := c.doJSON(ctx, http.MethodGet, "/api/dentists", nil, nil, &dentists); err != nil {
		return nil, fmt.Errorf("list dentists: %w", err)
	}
	return dentists, nil
}

// GetDentist finds one dentist in the directory listing.
func (c *Client) GetDentist(ctx context.Context, id ID) (*Dentist, error) {
	dentists, err := c.ListDentists(ctx)
	if err != nil {
		return nil, err
	}
	return FindDentist(dentists, id)
}

// FindDentist picks id out of a directory listing.
func FindDentist(dentists []Dentist, id ID) (*Dentist, error) {
	for i := range dentists {
		if dentists[i].ID == id {
			d := dentists[i]
			return &d, nil
		}
	}
	return nil, fmt.Errorf("dentist %s: %w", id, ErrNotFound)
}

// ListAppointments fetches appointments. The backend may ignore some query
// parameters, so the result is filtered again on the client.
func (c *Client) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	q := url.Values{}
	if filter.DentistID != "" {
		q.Set("dentist_id", filter.DentistID.String())
	}
	if filter.PatientID != "" {
		q.Set("patient_id", filter.PatientID.String())
	}
	if filter.Date != "" {
		q.Set("date", filter.Date)
	}

	var appts []Appointment
	if err := c.doJSON(ctx, http.MethodGet, "/api/appointments", q, nil, &appts); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if filter.DentistID != "" && a.DentistID != filter.DentistID {
			continue
		}
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if filter.Date != "" {
			start, err := a.Start(c.loc)
			if err != nil {
				c.logger.Warn("skipping appointment with unparseable datetime", "appointment_id", a.ID, "value", a.DateTime)
				continue
			}
			if localtime.FormatDate(start) != filter.Date {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// GetAppointment fetches a single appointment by id.
func (c *Client) GetAppointment(ctx context.Context, id ID) (*Appointment, error) {
	var appt Appointment
	path := "/api/appointments/" + url.PathEscape(id.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &appt); err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &appt, nil
}

// CheckLimit returns how many bookings the dentist has on date and the cap.
func (c *Client) CheckLimit(ctx context.Context, dentistID ID, date string) (*DailyLimit, error) {
	q := url.Values{}
	q.Set("dentist_id", dentistID.String())
	q.Set("date", date)

	var out DailyLimit
	if err := c.doJSON(ctx, http.MethodGet, "/api/appointments/check-limit", q, nil, &out); err != nil {
		return nil, fmt.Errorf("check limit: %w", err)
	}
	return &out, nil
}

// CreateAppointment submits a booking. Each call carries a fresh
// Idempotency-Key so the backend can drop transport-level duplicates.
func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*Appointment, error) {
	var out Appointment
	if err := c.doJSON(ctx, http.MethodPost, "/api/appointments", nil, req, &out); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &out, nil
}

// FindPatientByEmail returns the first patient with the given email, or nil
// when none exists.
func (c *Client) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	q := url.Values{}
	q.Set("email", strings.TrimSpace(email))

	var patients []Patient
	if err := c.doJSON(ctx, http.MethodGet, "/api/patients", q, nil, &patients); err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	if len(patients) == 0 {
		return nil, nil
	}
	p := patients[0]
	return &p, nil
}

// CreatePatient creates a patient record.
func (c *Client) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	var out Patient
	if err := c.doJSON(ctx, http.MethodPost, "/api/patients", nil, req, &out); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("create patient: response missing id")
	}
	return &out, nil
}

// ListFamily returns the family members linked to a parent patient.
func (c *Client) ListFamily(ctx context.Context, parentID ID) ([]Patient, error) {
	path := fmt.Sprintf("/api/patients/%s/family", url.PathEscape(parentID.String()))
	var members []Patient
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &members); err != nil {
		return nil, fmt.Errorf("list family: %w", err)
	}
	return members, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	ctx, span := clinicTracer.Start(ctx, "clinicapi."+strings.ToLower(method))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("dentalbook.path", path),
	)

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe(method, path, resp, started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return &NetworkError{Op: "read " + path, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(respBody)
		c.logger.Warn("clinic API non-2xx response", "status", resp.StatusCode, "method", method, "path", path, "body", msg)
		span.SetStatus(codes.Error, msg)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(method, path string, resp *http.Response, started time.Time) {
	if c.observer == nil {
		return
	}
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.observer.ObserveClinicAPI(method+" "+routeLabel(path), status, time.Since(started).Seconds())
}

// routeLabel collapses ids out of the path to keep label cardinality bounded.
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "patients", "appointments":
			if parts[i] != "" && parts[i] != "check-limit" {
				parts[i] = ":id"
			}
		}
	}
	return "/" + strings.Join(parts, "/")
}

// errorMessage prefers the backend's {"message": ...} envelope and falls back
// to the truncated raw body.
func errorMessage(body []byte) string {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

func parseNaive(raw string, loc *time.Location) (time.Time, error) {
	return localtime.ParseNaiveTimestamp(raw, loc)
}
