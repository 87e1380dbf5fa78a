package actors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/nerrad567/khome-core/internal/inventory"
	"github.com/nerrad567/khome-core/internal/scheduler"
)

// Recorders for the collaborator interfaces.

type sentSignal struct {
	nid, mal string
	value    any
}

type signalRecorder struct {
	mu   sync.Mutex
	sent []sentSignal
}

func (r *signalRecorder) SendSignal(nid, mal string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentSignal{nid, mal, value})
	return nil
}

func (r *signalRecorder) signals() []sentSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentSignal(nil), r.sent...)
}

type busRecorder struct {
	published map[string]any
}

func (r *busRecorder) PublishTo(topic string, payload any) error {
	if r.published == nil {
		r.published = make(map[string]any)
	}
	r.published[topic] = payload
	return nil
}

type sensorRecorder struct {
	rows []string
}

func (r *sensorRecorder) LogSensorData(ctx context.Context, sensor, value string) error {
	r.rows = append(r.rows, sensor+"|"+value)
	return nil
}

type metricRecorder struct {
	points map[string]float64
}

func (r *metricRecorder) WriteSensorMetric(key, field string, value float64) {
	if r.points == nil {
		r.points = make(map[string]float64)
	}
	r.points[key+"/"+field] = value
}

func handlerConfig(actorType string, data map[string]any) inventory.Config {
	if _, ok := data["src"]; !ok {
		data["src"] = "a1b2c3"
		data["src_mdl"] = "pir0"
	}
	return inventory.Config{"type": actorType, "data": data}
}

func TestFactoryCreate(t *testing.T) {
	f := New(Deps{Signals: &signalRecorder{}})

	actor, err := f.Create(handlerConfig("Resend", map[string]any{
		"trg": "d4e5f6", "trg_mdl": "relay0",
	}), "7")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, ok := actor.(*Resend); !ok {
		t.Errorf("Create returned %T, want *Resend (type tags are case-insensitive)", actor)
	}
	if actor.ID() != "7" {
		t.Errorf("actor id = %q", actor.ID())
	}
}

func TestFactoryUnknownType(t *testing.T) {
	f := New(Deps{})
	if _, err := f.Create(inventory.Config{"type": "teleport"}, "1"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("got %v, want ErrUnknownType", err)
	}
}

func TestFactoryCreateFromJSON(t *testing.T) {
	f := New(Deps{})
	raw := `{"type":"average","data":{"src":"a1b2c3","src_mdl":"dht22","box":"avg"}}`
	actor, err := f.CreateFromJSON(raw, "3")
	if err != nil {
		t.Fatalf("CreateFromJSON failed: %v", err)
	}
	if _, ok := actor.(*Average); !ok {
		t.Errorf("got %T, want *Average", actor)
	}

	if _, err := f.CreateFromJSON(`{nope`, "4"); !errors.Is(err, inventory.ErrInvalidConfig) {
		t.Errorf("malformed JSON: got %v", err)
	}
}

func TestResend(t *testing.T) {
	rec := &signalRecorder{}
	f := New(Deps{Signals: rec})

	actor, err := f.Create(handlerConfig("resend", map[string]any{
		"trg": "d4e5f6", "trg_mdl": "relay0",
	}), "7")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal("1")

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d signals, want 1", len(rec.sent))
	}
	if got := rec.sent[0]; got.nid != "d4e5f6" || got.mal != "relay0" || got.value != "1" {
		t.Errorf("sent %+v", got)
	}
}

func TestResendMapping(t *testing.T) {
	rec := &signalRecorder{}
	f := New(Deps{Signals: rec})

	// The mapping inverts the trigger value and redirects one case.
	actor, err := f.Create(handlerConfig("resend", map[string]any{
		"trg": "d4e5f6", "trg_mdl": "relay0",
		"map": []any{
			map[string]any{"in": "1", "out": "0"},
			map[string]any{"in": "0", "out": "1", "trg": "b2c3d4", "trg_mdl": "relay1"},
		},
	}), "7")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal("1")
	actor.ProcessSignal("0")
	actor.ProcessSignal("9") // unmapped, passes through

	if len(rec.sent) != 3 {
		t.Fatalf("sent %d signals, want 3", len(rec.sent))
	}
	if got := rec.sent[0]; got.value != "0" || got.nid != "d4e5f6" {
		t.Errorf("mapped value: sent %+v", got)
	}
	if got := rec.sent[1]; got.value != "1" || got.nid != "b2c3d4" || got.mal != "relay1" {
		t.Errorf("redirected: sent %+v", got)
	}
	if got := rec.sent[2]; got.value != "9" {
		t.Errorf("unmapped passthrough: sent %+v", got)
	}
}

func TestResendNoTarget(t *testing.T) {
	rec := &signalRecorder{}
	f := New(Deps{Signals: rec})

	actor, err := f.Create(handlerConfig("resend", map[string]any{}), "7")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	actor.ProcessSignal("1")
	if len(rec.sent) != 0 {
		t.Error("signal sent without a configured target")
	}
}

func TestResendEditDuringDispatch(t *testing.T) {
	rec := &signalRecorder{}
	f := New(Deps{Signals: rec})

	actor, err := f.Create(handlerConfig("resend", map[string]any{
		"trg": "d4e5f6", "trg_mdl": "relay0",
		"map": []any{map[string]any{"in": "1", "out": "0"}},
	}), "7")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Signals keep flowing while the mapping is edited underneath.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				actor.ProcessSignal("1")
			}
		}()
	}
	for i := 0; i < 50; i++ {
		actor.UpdateData(inventory.Config{
			"map": []any{map[string]any{"in": "1", "out": "open"}},
		})
		actor.ApplyChanges()
	}
	wg.Wait()

	sent := rec.signals()
	if len(sent) != 800 {
		t.Fatalf("sent %d signals, want 800", len(sent))
	}
	for _, got := range sent {
		if got.nid != "d4e5f6" || got.mal != "relay0" {
			t.Fatalf("signal routed to %s/%s", got.nid, got.mal)
		}
		if got.value != "0" && got.value != "open" {
			t.Fatalf("signal value = %v, want a mapped value", got.value)
		}
	}
}

func TestPeriodicGateConcurrent(t *testing.T) {
	gate := NewPeriodicGate(inventory.Config{"period": float64(2)})

	const signals = 100
	var passed int
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < signals; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.Pass() {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every second signal passes, regardless of interleaving.
	if passed != signals/2 {
		t.Errorf("passed %d of %d signals at period 2, want %d", passed, signals, signals/2)
	}
}

func TestAverageScalar(t *testing.T) {
	f := New(Deps{})
	actor, err := f.Create(handlerConfig("average", map[string]any{
		"box": "avg", "depth": float64(3),
	}), "3")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, v := range []string{"10", "20", "30", "40"} {
		actor.ProcessSignal(v)
	}

	// Window holds the last three values: (20+30+40)/3.
	if got := actor.Box().Value(); got != "30.0" {
		t.Errorf("box = %v, want 30.0", got)
	}
}

func TestAverageComposite(t *testing.T) {
	f := New(Deps{})
	actor, err := f.Create(handlerConfig("average", map[string]any{"box": "avg"}), "3")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal(map[string]any{"t": "20", "h": "60", "unit": "C"})
	actor.ProcessSignal(map[string]any{"t": "21", "h": "62", "unit": "C"})

	got, ok := actor.Box().Value().(map[string]any)
	if !ok {
		t.Fatalf("box holds %T", actor.Box().Value())
	}
	if got["t"] != "20.5" || got["h"] != "61.0" {
		t.Errorf("averaged = %v", got)
	}
	if got["unit"] != "C" {
		t.Errorf("non-numeric field mangled: %v", got["unit"])
	}
}

func TestAverageDepthClamped(t *testing.T) {
	f := New(Deps{})
	actor, err := f.Create(handlerConfig("average", map[string]any{
		"box": "avg", "depth": float64(0),
	}), "3")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal("10")
	actor.ProcessSignal("30")

	// Depth 0 clamps to a window of one: the box tracks the latest value.
	if got := actor.Box().Value(); got != "30.0" {
		t.Errorf("box = %v, want 30.0", got)
	}
}

func TestAverageRequiresBox(t *testing.T) {
	f := New(Deps{})
	if _, err := f.Create(handlerConfig("average", map[string]any{}), "3"); !errors.Is(err, inventory.ErrMissingField) {
		t.Errorf("box-less average: got %v, want ErrMissingField", err)
	}
}

func TestLogDBPeriod(t *testing.T) {
	rec := &sensorRecorder{}
	f := New(Deps{Sensors: rec})

	actor, err := f.Create(handlerConfig("logdb", map[string]any{
		"src": "a1b2c3", "src_mdl": "dht22", "period": float64(3),
	}), "4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 7; i++ {
		actor.ProcessSignal("21.5")
	}

	if len(rec.rows) != 2 {
		t.Fatalf("logged %d rows over 7 signals at period 3, want 2", len(rec.rows))
	}
	if rec.rows[0] != "a1b2c3/dht22|21.5" {
		t.Errorf("row = %q", rec.rows[0])
	}
}

func TestFlattenSignal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "21.5", "21.5"},
		{
			"composite sorted",
			map[string]any{"t": "21", "h": "60", "a": float64(1)},
			`{"a":"1","h":"60","t":"21"}`,
		},
		{"number", 21.5, `{"unknown-value-type":}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenSignal(tt.in); got != tt.want {
				t.Errorf("FlattenSignal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogBus(t *testing.T) {
	rec := &busRecorder{}
	f := New(Deps{Bus: rec})

	actor, err := f.Create(handlerConfig("logbus", map[string]any{
		"trg": "/outside/feed",
		"map": []any{map[string]any{"in": "1", "out": "open"}},
	}), "5")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal("1")

	if rec.published["/outside/feed"] != "open" {
		t.Errorf("published = %v", rec.published)
	}
}

func TestLogThingSpeak(t *testing.T) {
	var mu sync.Mutex
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		form = r.PostForm
		mu.Unlock()
	}))
	defer srv.Close()

	f := New(Deps{ThingSpeakURL: srv.URL})
	actor, err := f.Create(handlerConfig("logthingspeak", map[string]any{
		"src": "a1b2c3", "src_mdl": "dht22", "key": "WRITEKEY",
		"map": []any{
			map[string]any{"in": "t", "out": "field1"},
			map[string]any{"in": "h", "out": "field2"},
		},
	}), "6")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal(map[string]any{"t": "21.5", "h": "60", "junk": "x"})

	mu.Lock()
	defer mu.Unlock()
	if form == nil {
		t.Fatal("nothing uploaded")
	}
	if form.Get("key") != "WRITEKEY" || form.Get("field1") != "21.5" || form.Get("field2") != "60" {
		t.Errorf("form = %v", form)
	}
	if form.Has("junk") {
		t.Error("unmapped field uploaded")
	}
}

func TestLogThingSpeakScalarDefaultField(t *testing.T) {
	var mu sync.Mutex
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		form = r.PostForm
		mu.Unlock()
	}))
	defer srv.Close()

	f := New(Deps{ThingSpeakURL: srv.URL})
	actor, err := f.Create(handlerConfig("logthingspeak", map[string]any{"key": "WRITEKEY"}), "6")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal("21.5")

	mu.Lock()
	defer mu.Unlock()
	if form.Get("field1") != "21.5" {
		t.Errorf("form = %v, want scalar under field1", form)
	}
}

func TestLogThingSpeakRequiresKey(t *testing.T) {
	f := New(Deps{})
	if _, err := f.Create(handlerConfig("logthingspeak", map[string]any{}), "6"); !errors.Is(err, inventory.ErrMissingField) {
		t.Errorf("key-less uploader: got %v, want ErrMissingField", err)
	}
}

func TestLogInflux(t *testing.T) {
	rec := &metricRecorder{}
	f := New(Deps{Metrics: rec})

	actor, err := f.Create(handlerConfig("loginflux", map[string]any{
		"src": "a1b2c3", "src_mdl": "dht22",
	}), "8")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.ProcessSignal(map[string]any{"t": "21.5", "unit": "C"})
	actor.ProcessSignal("7")

	if rec.points["a1b2c3/dht22/t"] != 21.5 {
		t.Errorf("points = %v", rec.points)
	}
	if _, ok := rec.points["a1b2c3/dht22/unit"]; ok {
		t.Error("non-numeric field written")
	}
	if rec.points["a1b2c3/dht22/value"] != 7 {
		t.Errorf("scalar not written under value: %v", rec.points)
	}
}

func TestSchedule(t *testing.T) {
	sch := scheduler.New(func(string, any) {})
	f := New(Deps{Scheduler: sch})

	actor, err := f.Create(inventory.Config{
		"type": "schedule",
		"data": map[string]any{
			"jobs": []any{
				map[string]any{"event": "09:30", "value": "1"},
				map[string]any{"event": "21:30"}, // malformed, no value
			},
		},
	}, "9")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	jobs := sch.Jobs("09:30")
	if len(jobs) != 1 {
		t.Fatalf("filed %d jobs under 09:30, want 1", len(jobs))
	}
	if jobs[0].Handler() != "9" {
		t.Errorf("job handler = %q, want the actor id", jobs[0].Handler())
	}
	if len(sch.Jobs("21:30")) != 0 {
		t.Error("malformed job was filed")
	}
	if actor.Role() != inventory.RoleGenerator {
		t.Error("schedule actor is not a generator")
	}
}

func TestScheduleApplyChanges(t *testing.T) {
	sch := scheduler.New(func(string, any) {})
	f := New(Deps{Scheduler: sch})

	cfg := inventory.Config{
		"type": "schedule",
		"data": map[string]any{
			"jobs": []any{map[string]any{"event": "09:30", "value": "1"}},
		},
	}
	actor, err := f.Create(cfg, "9")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	actor.UpdateData(inventory.Config{
		"jobs": []any{map[string]any{"event": "10:45", "value": "0"}},
	})
	actor.ApplyChanges()

	if len(sch.Jobs("09:30")) != 0 {
		t.Error("old job survived a config edit")
	}
	if len(sch.Jobs("10:45")) != 1 {
		t.Error("edited job not filed")
	}
}

func TestScheduleRequiresScheduler(t *testing.T) {
	f := New(Deps{})
	if _, err := f.Create(inventory.Config{"type": "schedule", "data": map[string]any{}}, "9"); err == nil {
		t.Error("schedule actor built without a scheduler")
	}
}
