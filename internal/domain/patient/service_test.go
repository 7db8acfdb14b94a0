package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/session"
)

type recordingScoper struct {
	calls []string
}

func (r *recordingScoper) ScopeDraft(_ *session.Session, patientID string) {
	r.calls = append(r.calls, patientID)
}

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	return NewService(repo, time.Second), repo
}

func TestImport_CreatesThenReplaces(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p := samplePatient()
	created, err := svc.Import(ctx, p)
	if err != nil || !created {
		t.Fatalf("expected create, created=%v err=%v", created, err)
	}
	firstID := p.ID
	if firstID == "" || firstID == "p1" {
		t.Fatalf("expected a store-assigned id, got %q", firstID)
	}

	again := samplePatient()
	again.FullName = "Margaret A. Smith"
	created, err = svc.Import(ctx, again)
	if err != nil || created {
		t.Fatalf("expected replace, created=%v err=%v", created, err)
	}
	if again.ID != firstID {
		t.Errorf("expected id %s to be kept, got %s", firstID, again.ID)
	}

	got, err := svc.GetPatient(ctx, firstID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FullName != "Margaret A. Smith" {
		t.Errorf("expected updated name, got %q", got.FullName)
	}

	list, total, _ := svc.ListPatients(ctx, 0, 0)
	if total != 1 || len(list) != 1 {
		t.Errorf("expected one patient, got %d", total)
	}
}

func TestImport_RejectsMissingHospitalID(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Import(context.Background(), &Patient{FullName: "No Id"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMemoryRepo_DuplicateHospitalID(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Create(ctx, &Patient{HospitalID: "H1", FullName: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := repo.Create(ctx, &Patient{HospitalID: "H1", FullName: "B"})
	if !errors.Is(err, ErrDuplicateHospitalID) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if apperr.StatusOf(err) != 409 {
		t.Errorf("expected 409, got %d", apperr.StatusOf(err))
	}
}

func TestListPatients_OrderAndWindow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i, name := range []string{"Charlie", "Alice", "Bob"} {
		_, err := svc.Import(ctx, &Patient{HospitalID: string(rune('A' + i)), FullName: name})
		if err != nil {
			t.Fatalf("import %s: %v", name, err)
		}
	}

	all, total, err := svc.ListPatients(ctx, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || all[0].FullName != "Alice" || all[2].FullName != "Charlie" {
		t.Errorf("unexpected list %+v", all)
	}

	page, total, _ := svc.ListPatients(ctx, 1, 1)
	if total != 3 || len(page) != 1 || page[0].FullName != "Bob" {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetPatient(context.Background(), "missing")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), ""); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound for empty id, got %v", err)
	}
}

func TestSelectPatient_SetsSessionAndScopesDraft(t *testing.T) {
	svc, _ := newTestService()
	scoper := &recordingScoper{}
	svc.SetDraftScoper(scoper)
	ctx := context.Background()

	p := samplePatient()
	if _, err := svc.Import(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess := session.New()
	if _, err := svc.SelectPatient(ctx, sess, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.PatientID != p.ID {
		t.Errorf("expected active patient %s, got %s", p.ID, sess.PatientID)
	}
	if len(scoper.calls) != 1 || scoper.calls[0] != p.ID {
		t.Errorf("expected draft scoping for %s, got %v", p.ID, scoper.calls)
	}
}

func TestSelectPatient_UnknownLeavesSessionUntouched(t *testing.T) {
	svc, _ := newTestService()
	sess := session.New()
	sess.SelectPatient("previous")

	if _, err := svc.SelectPatient(context.Background(), sess, "missing"); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if sess.PatientID != "previous" {
		t.Errorf("expected active patient to be unchanged, got %q", sess.PatientID)
	}
}

type slowRepo struct{ Repository }

func (slowRepo) GetByID(ctx context.Context, _ string) (*Patient, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGetPatient_TimeoutIsRetryable(t *testing.T) {
	svc := NewService(slowRepo{}, 10*time.Millisecond)
	_, err := svc.GetPatient(context.Background(), "p1")
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if apperr.StatusOf(err) != 503 {
		t.Errorf("expected 503, got %d", apperr.StatusOf(err))
	}
}
