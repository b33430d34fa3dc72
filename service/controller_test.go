package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"lecture2obs/config"
	"lecture2obs/constant"
	"lecture2obs/dto"
	"lecture2obs/entities"
	"lecture2obs/pkg/recorder"
	"lecture2obs/repository"
)

// fakeRepo is an in-memory SessionRepository. createErr, when set, is
// returned by the first CreateActive call.
type fakeRepo struct {
	sessions  map[uuid.UUID]*entities.Session
	runs      []*entities.PipelineRun
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: map[uuid.UUID]*entities.Session{}}
}

func (f *fakeRepo) CreateActive(_ context.Context, session *entities.Session) error {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	for _, s := range f.sessions {
		if s.Active != nil && *s.Active {
			return repository.ErrSessionActive
		}
	}
	active := true
	session.Active = &active
	if session.State == "" {
		session.State = constant.SessionStateRecording
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeRepo) ActiveSession(context.Context) (*entities.Session, error) {
	for _, s := range f.sessions {
		if s.Active != nil && *s.Active {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindSessionById(_ context.Context, id uuid.UUID) (*entities.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return s, nil
}

func (f *fakeRepo) UpdatePid(_ context.Context, id uuid.UUID, pid int) error {
	if s, ok := f.sessions[id]; ok {
		s.Pid = pid
	}
	return nil
}

func (f *fakeRepo) MarkProcessing(_ context.Context, id uuid.UUID, audioPath string) error {
	if s, ok := f.sessions[id]; ok {
		s.State = constant.SessionStateProcessing
		s.AudioPath = audioPath
	}
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, detail string) error {
	if s, ok := f.sessions[id]; ok {
		s.State = constant.SessionStateFailed
		s.Active = nil
		s.FailureDetail = detail
	}
	return nil
}

func (f *fakeRepo) ClearCompleted(_ context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeRepo) ClearStale(_ context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeRepo) FailedSessions(context.Context) ([]*entities.Session, error) {
	var out []*entities.Session
	for _, s := range f.sessions {
		if s.State == constant.SessionStateFailed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendRun(_ context.Context, run *entities.PipelineRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) RunsBySessionId(_ context.Context, sessionId uuid.UUID) ([]*entities.PipelineRun, error) {
	var out []*entities.PipelineRun
	for _, r := range f.runs {
		if r.SessionID == sessionId {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRunner struct {
	spawnPid  int
	spawnErr  error
	signaled  []int
	alivePids map[int]bool
}

func (f *fakeRunner) Spawn(*entities.Session) (int, error) {
	if f.spawnErr != nil {
		return 0, f.spawnErr
	}
	return f.spawnPid, nil
}

func (f *fakeRunner) Signal(pid int) error {
	f.signaled = append(f.signaled, pid)
	return nil
}

func (f *fakeRunner) Alive(pid int) bool {
	return f.alivePids[pid]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.StateDir = t.TempDir()
	cfg.Schedule = []config.ScheduleEntry{
		{Day: time.Monday, Start: 9 * 60, End: 10*60 + 15, Course: "CS 301", TitlePrefix: "Data Structures"},
	}
	return cfg
}

func newTestController(repo *fakeRepo, runner *fakeRunner, cfg *config.Config, now time.Time) *controllerService {
	return &controllerService{
		repo:   repo,
		cfg:    cfg,
		runner: runner,
		now:    func() time.Time { return now },
	}
}

func TestToggleStartsRecording(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	runner := &fakeRunner{spawnPid: 5151}
	// A Monday at 09:05, inside the CS 301 slot.
	now := time.Date(2026, 8, 24, 9, 5, 0, 0, time.UTC)
	svc := newTestController(repo, runner, testConfig(t), now)

	result, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Action != dto.ToggleActionStarted {
		t.Fatalf("Action = %q", result.Action)
	}
	if result.Course != "CS 301" {
		t.Fatalf("Course = %q, want schedule match", result.Course)
	}
	if result.Title != "Data Structures 2026-08-24" {
		t.Fatalf("Title = %q", result.Title)
	}
	if result.Pid != 5151 {
		t.Fatalf("Pid = %d", result.Pid)
	}

	stored := repo.sessions[result.SessionID]
	if stored == nil {
		t.Fatal("session not persisted")
	}
	if stored.State != constant.SessionStateRecording || stored.Pid != 5151 {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.AudioPath == "" {
		t.Fatal("AudioPath not assigned")
	}
}

func TestToggleExplicitMetadataWins(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	now := time.Date(2026, 8, 24, 9, 5, 0, 0, time.UTC)
	svc := newTestController(repo, &fakeRunner{spawnPid: 1}, testConfig(t), now)

	result, err := svc.Toggle(context.Background(), "MATH 212", "Midterm Review", "2026-08-20")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Course != "MATH 212" || result.Title != "Midterm Review" {
		t.Fatalf("result = %+v, want explicit metadata", result)
	}
	if repo.sessions[result.SessionID].NoteDate != "2026-08-20" {
		t.Fatalf("NoteDate = %q", repo.sessions[result.SessionID].NoteDate)
	}
}

func TestToggleOutsideScheduleUsesDefault(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	// Tuesday has no timetable entries.
	now := time.Date(2026, 8, 25, 9, 5, 0, 0, time.UTC)
	svc := newTestController(repo, &fakeRunner{spawnPid: 1}, testConfig(t), now)

	result, err := svc.Toggle(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Course != "Lecture" {
		t.Fatalf("Course = %q, want default", result.Course)
	}
	if result.Title != "Lecture 2026-08-25" {
		t.Fatalf("Title = %q", result.Title)
	}
}

func TestToggleStopsActiveRecording(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	runner := &fakeRunner{spawnPid: 7000, alivePids: map[int]bool{7000: true}}
	now := time.Date(2026, 8, 24, 9, 5, 0, 0, time.UTC)
	svc := newTestController(repo, runner, testConfig(t), now)

	started, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("first Toggle: %v", err)
	}

	stopped, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if stopped.Action != dto.ToggleActionStopped {
		t.Fatalf("Action = %q", stopped.Action)
	}
	if stopped.SessionID != started.SessionID {
		t.Fatal("stopped a different session")
	}
	if len(runner.signaled) != 1 || runner.signaled[0] != 7000 {
		t.Fatalf("signaled = %v, want [7000]", runner.signaled)
	}
}

func TestToggleRejectedWhileProcessing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:     id,
		State:  constant.SessionStateProcessing,
		Active: &active,
		Pid:    7000,
	}
	svc := newTestController(repo, &fakeRunner{}, testConfig(t), time.Now())

	if _, err := svc.Toggle(ctx, "", "", ""); !errors.Is(err, ErrPipelineBusy) {
		t.Fatalf("err = %v, want ErrPipelineBusy", err)
	}
	if _, ok := repo.sessions[id]; !ok {
		t.Fatal("processing session must not be cleared")
	}
}

func TestToggleClearsStaleSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:     id,
		State:  constant.SessionStateRecording,
		Active: &active,
		Pid:    4040,
	}
	// Pid 4040 is not alive.
	svc := newTestController(repo, &fakeRunner{alivePids: map[int]bool{}}, testConfig(t), time.Now())

	result, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Action != dto.ToggleActionStaleCleared {
		t.Fatalf("Action = %q", result.Action)
	}
	if _, ok := repo.sessions[id]; ok {
		t.Fatal("stale session was not cleared")
	}
}

func TestToggleDuringStartupWindowNotCleared(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The spawning toggle has inserted the row but not yet persisted the
	// recorder pid. A concurrent toggle must not clear it.
	repo := newFakeRepo()
	now := time.Now()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:        id,
		State:     constant.SessionStateRecording,
		Active:    &active,
		Pid:       0,
		StartedAt: now,
	}
	svc := newTestController(repo, &fakeRunner{alivePids: map[int]bool{}}, testConfig(t), now)

	if _, err := svc.Toggle(ctx, "", "", ""); !errors.Is(err, ErrRecorderStarting) {
		t.Fatalf("err = %v, want ErrRecorderStarting", err)
	}
	if _, ok := repo.sessions[id]; !ok {
		t.Fatal("in-flight session was cleared as stale")
	}
}

func TestToggleClearsAbandonedStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The pid never arrived and the grace period is long past: the
	// spawning toggle died, the record is garbage.
	repo := newFakeRepo()
	now := time.Now()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:        id,
		State:     constant.SessionStateRecording,
		Active:    &active,
		Pid:       0,
		StartedAt: now.Add(-time.Minute),
	}
	svc := newTestController(repo, &fakeRunner{alivePids: map[int]bool{}}, testConfig(t), now)

	result, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Action != dto.ToggleActionStaleCleared {
		t.Fatalf("Action = %q", result.Action)
	}
	if _, ok := repo.sessions[id]; ok {
		t.Fatal("abandoned session was not cleared")
	}
}

func TestStatusDuringStartupWindowReportsRecording(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	now := time.Now()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:        id,
		State:     constant.SessionStateRecording,
		Active:    &active,
		Pid:       0,
		Course:    "CS 301",
		StartedAt: now,
	}
	svc := newTestController(repo, &fakeRunner{alivePids: map[int]bool{}}, testConfig(t), now)

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != constant.SessionStateRecording {
		t.Fatalf("State = %q, want recording while the recorder starts", status.State)
	}
}

func TestToggleLostRaceStopsWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	repo.createErr = repository.ErrSessionActive
	active := true
	winner := uuid.New()
	repo.sessions[winner] = &entities.Session{
		ID:     winner,
		State:  constant.SessionStateRecording,
		Active: &active,
		Pid:    8080,
	}
	runner := &fakeRunner{alivePids: map[int]bool{8080: true}}
	svc := newTestController(repo, runner, testConfig(t), time.Now())

	result, err := svc.Toggle(ctx, "", "", "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if result.Action != dto.ToggleActionStopped || result.SessionID != winner {
		t.Fatalf("result = %+v, want winner stopped", result)
	}
}

func TestToggleSpawnFailureRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := newFakeRepo()
	runner := &fakeRunner{spawnErr: errors.New("exec: not found")}
	svc := newTestController(repo, runner, testConfig(t), time.Now())

	_, err := svc.Toggle(ctx, "", "", "")
	if !errors.Is(err, recorder.ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatal("session record survived a failed spawn")
	}
}

func TestStatusIdle(t *testing.T) {
	t.Parallel()

	svc := newTestController(newFakeRepo(), &fakeRunner{}, testConfig(t), time.Now())
	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != constant.SessionStateIdle {
		t.Fatalf("State = %q", status.State)
	}
}

func TestStatusRecordingReportsElapsed(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	now := time.Date(2026, 8, 24, 9, 45, 0, 0, time.UTC)
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:        id,
		State:     constant.SessionStateRecording,
		Active:    &active,
		Pid:       6001,
		Course:    "CS 301",
		Title:     "Data Structures 2026-08-24",
		StartedAt: now.Add(-40 * time.Minute),
	}
	runner := &fakeRunner{alivePids: map[int]bool{6001: true}}
	svc := newTestController(repo, runner, testConfig(t), now)

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != constant.SessionStateRecording {
		t.Fatalf("State = %q", status.State)
	}
	if status.Elapsed != 40*time.Minute {
		t.Fatalf("Elapsed = %v", status.Elapsed)
	}
	if status.Course != "CS 301" || status.Pid != 6001 {
		t.Fatalf("status = %+v", status)
	}
}

func TestStatusDeadRecorderReportsIdle(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	active := true
	id := uuid.New()
	repo.sessions[id] = &entities.Session{
		ID:        id,
		State:     constant.SessionStateRecording,
		Active:    &active,
		Pid:       4040,
		StartedAt: time.Now(),
	}
	svc := newTestController(repo, &fakeRunner{alivePids: map[int]bool{}}, testConfig(t), time.Now())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != constant.SessionStateIdle {
		t.Fatalf("State = %q, want idle for dead recorder", status.State)
	}
	// Status never mutates; the stale record is still there for toggle.
	if _, ok := repo.sessions[id]; !ok {
		t.Fatal("Status cleared the stale session")
	}
}
