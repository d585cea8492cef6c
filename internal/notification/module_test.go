package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"vehicle_inspection_backend/internal/auth"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/notification/inapp"
	"vehicle_inspection_backend/internal/notification/outbox"
	"vehicle_inspection_backend/internal/notification/templates"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

type testInbox struct {
	mu      sync.Mutex
	created []inapp.CreateParams
	err     error
}

func (f *testInbox) Store(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return inapp.Notification{}, f.err
	}
	f.created = append(f.created, p)
	return inapp.Notification{ID: uuid.New(), UserID: p.UserID, Channel: p.Channel, Recipient: p.Recipient}, nil
}

func (f *testInbox) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.created))
	for _, c := range f.created {
		out = append(out, c.Channel)
	}
	return out
}

type testOutbox struct {
	mu       sync.Mutex
	inserted []outbox.InsertParams
	err      error
}

func (f *testOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.inserted = append(f.inserted, p)
	return uuid.New(), nil
}

type testContacts struct {
	profiles map[uuid.UUID]auth.Profile
}

func (f testContacts) GetContact(_ context.Context, userID uuid.UUID) (auth.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return auth.Profile{}, errors.New("unknown user")
	}
	return p, nil
}

func newTestModule(t *testing.T, contacts testContacts) (*Module, *testInbox, *testOutbox) {
	t.Helper()
	catalog, err := templates.Load()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	log := logger.New("test")
	inbox := &testInbox{}
	ob := &testOutbox{}
	return &Module{
		dispatcher: NewDispatcher(inbox, ob, "BE", log),
		catalog:    catalog,
		contacts:   contacts,
		loc:        time.UTC,
		log:        log,
	}, inbox, ob
}

func strPtr(v string) *string { return &v }

func TestSendInAppStoresWithoutOutbox(t *testing.T) {
	log := logger.New("test")
	inbox := &testInbox{}
	ob := &testOutbox{}
	d := NewDispatcher(inbox, ob, "BE", log)

	userID := uuid.New()
	receipt := d.Send(context.Background(), Message{UserID: userID, Channel: inapp.ChannelInApp, Subject: "Hi", Body: "Hello"})
	if !receipt.Accepted || receipt.NotificationID == uuid.Nil {
		t.Fatalf("expected accepted receipt, got %+v", receipt)
	}
	if len(ob.inserted) != 0 {
		t.Fatalf("in-app message must not be queued, got %d rows", len(ob.inserted))
	}
	if inbox.created[0].Recipient != userID.String() {
		t.Fatalf("expected user id as in-app recipient, got %q", inbox.created[0].Recipient)
	}
	if inbox.created[0].Category != inapp.CategoryAppointment {
		t.Fatalf("expected default category, got %q", inbox.created[0].Category)
	}
}

func TestSendEmailQueuesOutboxRow(t *testing.T) {
	log := logger.New("test")
	inbox := &testInbox{}
	ob := &testOutbox{}
	d := NewDispatcher(inbox, ob, "BE", log)

	receipt := d.Send(context.Background(), Message{
		UserID:    uuid.New(),
		Recipient: "Ann <ANN@Example.com>",
		Channel:   inapp.ChannelEmail,
		Category:  inapp.CategoryPayment,
		Subject:   "Paid",
		Body:      "Thanks",
	})
	if !receipt.Accepted {
		t.Fatal("expected accepted receipt")
	}
	if len(ob.inserted) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(ob.inserted))
	}
	row := ob.inserted[0]
	if row.Channel != outbox.ChannelEmail || row.Payload.Recipient != "ann@example.com" {
		t.Fatalf("unexpected outbox row %+v", row)
	}
}

func TestSendSMSNormalizesNumber(t *testing.T) {
	log := logger.New("test")
	inbox := &testInbox{}
	ob := &testOutbox{}
	d := NewDispatcher(inbox, ob, "BE", log)

	receipt := d.Send(context.Background(), Message{
		UserID:    uuid.New(),
		Recipient: "0470 12 34 56",
		Channel:   inapp.ChannelSMS,
		Subject:   "Reminder",
		Body:      "Tomorrow",
	})
	if !receipt.Accepted {
		t.Fatal("expected accepted receipt")
	}
	if got := ob.inserted[0].Payload.Recipient; got != "+32470123456" {
		t.Fatalf("expected E.164 recipient, got %q", got)
	}
}

func TestSendNeverFailsTheCaller(t *testing.T) {
	log := logger.New("test")
	userID := uuid.New()

	cases := map[string]struct {
		inbox *testInbox
		ob    *testOutbox
		msg   Message
	}{
		"unknown channel": {&testInbox{}, &testOutbox{}, Message{UserID: userID, Channel: "pigeon", Subject: "s", Body: "b"}},
		"bad email":       {&testInbox{}, &testOutbox{}, Message{UserID: userID, Channel: inapp.ChannelEmail, Recipient: "nope", Subject: "s", Body: "b"}},
		"bad phone":       {&testInbox{}, &testOutbox{}, Message{UserID: userID, Channel: inapp.ChannelSMS, Recipient: "12", Subject: "s", Body: "b"}},
		"empty body":      {&testInbox{}, &testOutbox{}, Message{UserID: userID, Channel: inapp.ChannelInApp, Subject: "s"}},
		"no user":         {&testInbox{}, &testOutbox{}, Message{Channel: inapp.ChannelInApp, Subject: "s", Body: "b"}},
		"store down":      {&testInbox{err: errors.New("db down")}, &testOutbox{}, Message{UserID: userID, Channel: inapp.ChannelInApp, Subject: "s", Body: "b"}},
	}
	for name, tc := range cases {
		d := NewDispatcher(tc.inbox, tc.ob, "BE", log)
		if receipt := d.Send(context.Background(), tc.msg); receipt.Accepted {
			t.Fatalf("%s: expected rejected receipt", name)
		}
	}

	failing := &testOutbox{err: errors.New("db down")}
	d := NewDispatcher(&testInbox{}, failing, "BE", log)
	receipt := d.Send(context.Background(), Message{UserID: userID, Channel: inapp.ChannelEmail, Recipient: "a@b.com", Subject: "s", Body: "b"})
	if receipt.Accepted {
		t.Fatal("expected rejected receipt when the outbox insert fails")
	}
	if receipt.NotificationID == uuid.Nil {
		t.Fatal("expected the stored notification id to be reported")
	}
}

func TestAppointmentConfirmedNotifiesAllChannels(t *testing.T) {
	customerID := uuid.New()
	m, inbox, ob := newTestModule(t, testContacts{profiles: map[uuid.UUID]auth.Profile{
		customerID: {ID: customerID, Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", Phone: strPtr("+32470123456")},
	}})

	err := m.Handle(context.Background(), events.AppointmentConfirmed{
		AppointmentID: uuid.New(),
		CustomerID:    customerID,
		Registration:  "AB12CDE",
		RequestedAt:   time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := strings.Join(inbox.channels(), ",")
	if got != "in_app,email,sms" {
		t.Fatalf("expected in_app,email,sms, got %s", got)
	}
	if len(ob.inserted) != 2 {
		t.Fatalf("expected email and sms outbox rows, got %d", len(ob.inserted))
	}
	if !strings.Contains(inbox.created[0].Body, "Hello Ann Lee") || !strings.Contains(inbox.created[0].Body, "Tue 3 Mar 2026 09:30") {
		t.Fatalf("unexpected body %q", inbox.created[0].Body)
	}
	if inbox.created[0].Metadata["template"] != templates.AppointmentConfirmation {
		t.Fatalf("expected template metadata, got %v", inbox.created[0].Metadata)
	}
}

func TestPaymentCompletedSkipsSMS(t *testing.T) {
	payerID := uuid.New()
	m, inbox, _ := newTestModule(t, testContacts{profiles: map[uuid.UUID]auth.Profile{
		payerID: {ID: payerID, Email: "ann@example.com", FirstName: "Ann", Phone: strPtr("+32470123456")},
	}})

	invoice := "INV-000007"
	err := m.Handle(context.Background(), events.PaymentCompleted{
		PaymentID:     uuid.New(),
		AppointmentID: uuid.New(),
		PayerID:       payerID,
		PaymentType:   "booking_fee",
		Amount:        25,
		InvoiceNumber: &invoice,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := strings.Join(inbox.channels(), ","); got != "in_app,email" {
		t.Fatalf("expected in_app,email, got %s", got)
	}
	if inbox.created[0].Category != inapp.CategoryPayment {
		t.Fatalf("expected payment category, got %q", inbox.created[0].Category)
	}
	if !strings.Contains(inbox.created[0].Body, "booking fee payment of 25.00") {
		t.Fatalf("unexpected body %q", inbox.created[0].Body)
	}
}

func TestUnknownContactIsSwallowed(t *testing.T) {
	m, inbox, _ := newTestModule(t, testContacts{})

	err := m.Handle(context.Background(), events.AppointmentCancelled{AppointmentID: uuid.New(), CustomerID: uuid.New()})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(inbox.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(inbox.created))
	}
}

type testOutboxStore struct {
	records   map[uuid.UUID]outbox.Record
	succeeded []uuid.UUID
	failed    map[uuid.UUID]string
	retries   map[uuid.UUID]time.Time
}

func newTestOutboxStore(records ...outbox.Record) *testOutboxStore {
	s := &testOutboxStore{
		records: make(map[uuid.UUID]outbox.Record),
		failed:  make(map[uuid.UUID]string),
		retries: make(map[uuid.UUID]time.Time),
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *testOutboxStore) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	r, ok := s.records[id]
	if !ok {
		return outbox.Record{}, errors.New("missing")
	}
	return r, nil
}

func (s *testOutboxStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	r := s.records[id]
	r.Status = outbox.StatusProcessing
	r.Attempts++
	s.records[id] = r
	return nil
}

func (s *testOutboxStore) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	s.succeeded = append(s.succeeded, id)
	r := s.records[id]
	r.Status = outbox.StatusSucceeded
	s.records[id] = r
	return nil
}

func (s *testOutboxStore) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	s.failed[id] = lastError
	r := s.records[id]
	r.Status = outbox.StatusFailed
	s.records[id] = r
	return nil
}

func (s *testOutboxStore) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, _ string) error {
	s.retries[id] = runAt
	r := s.records[id]
	r.Status = outbox.StatusPending
	s.records[id] = r
	return nil
}

type testSender struct {
	emails []string
	sms    []string
	err    error
}

func (s *testSender) SendEmail(_ context.Context, to, _, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, to)
	return nil
}

func (s *testSender) SendSMS(_ context.Context, to, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sms = append(s.sms, to+":"+body)
	return nil
}

func outboxRecord(t *testing.T, ch string, attempts int, payload outbox.Payload) outbox.Record {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.Record{ID: uuid.New(), NotificationID: uuid.New(), Channel: ch, Payload: raw, Status: outbox.StatusEnqueued, Attempts: attempts}
}

func TestDeliverSendsAndMarksSucceeded(t *testing.T) {
	rec := outboxRecord(t, outbox.ChannelEmail, 0, outbox.Payload{Recipient: "ann@example.com", Subject: "s", Body: "b"})
	store := newTestOutboxStore(rec)
	sender := &testSender{}
	d := NewDeliverer(store, sender, sender, logger.New("test"))

	if err := d.Deliver(context.Background(), rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(sender.emails) != 1 || len(store.succeeded) != 1 {
		t.Fatalf("expected one delivery, got emails=%v succeeded=%v", sender.emails, store.succeeded)
	}

	if err := d.Deliver(context.Background(), rec.ID); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if len(sender.emails) != 1 {
		t.Fatal("a succeeded row must not be sent twice")
	}
}

func TestDeliverSchedulesRetryThenFails(t *testing.T) {
	rec := outboxRecord(t, outbox.ChannelSMS, 0, outbox.Payload{Recipient: "+32470123456", Body: "b"})
	store := newTestOutboxStore(rec)
	sender := &testSender{err: errors.New("provider down")}
	d := NewDeliverer(store, sender, sender, logger.New("test"))
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if err := d.Deliver(context.Background(), rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := store.retries[rec.ID]; !got.Equal(now.Add(outboxRetryBaseDelay)) {
		t.Fatalf("expected retry at %v, got %v", now.Add(outboxRetryBaseDelay), got)
	}

	exhausted := outboxRecord(t, outbox.ChannelSMS, maxOutboxRetryAttempts-1, outbox.Payload{Recipient: "+32470123456", Body: "b"})
	store.records[exhausted.ID] = exhausted
	if err := d.Deliver(context.Background(), exhausted.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, ok := store.failed[exhausted.ID]; !ok {
		t.Fatal("expected exhausted row to be marked failed")
	}
}

func TestDeliverRejectsBadPayload(t *testing.T) {
	rec := outbox.Record{ID: uuid.New(), Channel: outbox.ChannelEmail, Payload: json.RawMessage(`{"recipient":""}`), Status: outbox.StatusEnqueued}
	store := newTestOutboxStore(rec)
	sender := &testSender{}
	d := NewDeliverer(store, sender, sender, logger.New("test"))

	if err := d.Deliver(context.Background(), rec.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !strings.HasPrefix(store.failed[rec.ID], invalidOutboxPayloadPrefix) {
		t.Fatalf("expected invalid payload failure, got %q", store.failed[rec.ID])
	}
	if len(sender.emails) != 0 {
		t.Fatal("nothing should be sent")
	}
}

func TestComputeOutboxRetryDelayCaps(t *testing.T) {
	if got := computeOutboxRetryDelay(0); got != outboxRetryBaseDelay {
		t.Fatalf("expected base delay, got %v", got)
	}
	if got := computeOutboxRetryDelay(3); got != 4*outboxRetryBaseDelay {
		t.Fatalf("expected 4x base delay, got %v", got)
	}
	if got := computeOutboxRetryDelay(20); got != outboxRetryMaxDelay {
		t.Fatalf("expected capped delay, got %v", got)
	}
}

func TestSMSTextTruncates(t *testing.T) {
	long := strings.Repeat("é", 200)
	got := []rune(smsText(outbox.Payload{Body: long}))
	if len(got) != 160 {
		t.Fatalf("expected 160 runes, got %d", len(got))
	}
}
