package video

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/schema"
)

type fakeVideoRepo struct {
	videos map[uuid.UUID]*model.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[uuid.UUID]*model.Video)}
}

func (f *fakeVideoRepo) Create(_ context.Context, v *model.Video) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	copied := *v
	f.videos[v.ID] = &copied
	return nil
}

func (f *fakeVideoRepo) Get(_ context.Context, id uuid.UUID) (*model.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("failed to get video: no rows")
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVideoRepo) ListByUploader(_ context.Context, doctorID uuid.UUID) ([]*model.Video, error) {
	return f.ListByUploaders(context.Background(), []uuid.UUID{doctorID})
}

func (f *fakeVideoRepo) ListByUploaders(_ context.Context, doctorIDs []uuid.UUID) ([]*model.Video, error) {
	var out []*model.Video
	for _, v := range f.videos {
		for _, id := range doctorIDs {
			if v.UploadedBy == id {
				copied := *v
				out = append(out, &copied)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeVideoRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.videos[id]; !ok {
		return fmt.Errorf("failed to delete video: no rows")
	}
	delete(f.videos, id)
	return nil
}

type fakePatientRepo struct {
	byUser map[uuid.UUID][]*model.Patient
}

func (f *fakePatientRepo) Upsert(context.Context, *model.Patient) error { return nil }

func (f *fakePatientRepo) Get(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePatientRepo) GetByUserID(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakePatientRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*model.Patient, error) {
	return f.byUser[userID], nil
}

type fakeAppointmentRepo struct {
	byPatient map[uuid.UUID][]*model.Appointment
}

func (f *fakeAppointmentRepo) CreateShape(context.Context, schema.WriteShape, *model.Appointment, *model.OutboxEvent) error {
	return nil
}

func (f *fakeAppointmentRepo) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeAppointmentRepo) UpdateStatus(context.Context, uuid.UUID, model.AppointmentStatus, *model.OutboxEvent) error {
	return nil
}

func (f *fakeAppointmentRepo) ListByDoctor(context.Context, uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListByPatient(context.Context, uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListByPatients(_ context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, id := range patientIDs {
		out = append(out, f.byPatient[id]...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// failingFileStore rejects deletes, simulating the orphaned-file case.
type failingFileStore struct {
	saved   map[string]bool
	deletes []string
}

func newFailingFileStore() *failingFileStore {
	return &failingFileStore{saved: make(map[string]bool)}
}

func (f *failingFileStore) Save(_ context.Context, key string, _ io.Reader) (string, error) {
	f.saved[key] = true
	return "http://files.test/" + key, nil
}

func (f *failingFileStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *failingFileStore) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return fmt.Errorf("storage backend rejected delete")
}

func (f *failingFileStore) URL(key string) string { return "http://files.test/" + key }

func newTestService(videos *fakeVideoRepo, patients *fakePatientRepo, apts *fakeAppointmentRepo, files *failingFileStore) *Service {
	if patients == nil {
		patients = &fakePatientRepo{byUser: map[uuid.UUID][]*model.Patient{}}
	}
	if apts == nil {
		apts = &fakeAppointmentRepo{byPatient: map[uuid.UUID][]*model.Appointment{}}
	}
	if files == nil {
		files = newFailingFileStore()
	}
	logger := zerolog.Nop()
	return NewService(videos, patients, apts, files, &logger)
}

func TestCreateWithUploadedFile(t *testing.T) {
	videos := newFakeVideoRepo()
	files := newFailingFileStore()
	svc := newTestService(videos, nil, nil, files)

	doctorID := uuid.New()
	v, err := svc.Create(context.Background(), doctorID, &model.CreateVideoRequest{
		Title:    "Stretching basics",
		Category: "exercise",
	}, strings.NewReader("fake bytes"), "stretch.mp4")
	require.NoError(t, err)
	require.NotNil(t, v.FileURL)
	require.NotNil(t, v.FileKey)
	assert.True(t, strings.HasSuffix(*v.FileKey, ".mp4"))
	assert.Nil(t, v.VideoURL)
}

func TestCreateRequiresURLOrFile(t *testing.T) {
	svc := newTestService(newFakeVideoRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), &model.CreateVideoRequest{
		Title:    "No content",
		Category: "exercise",
	}, nil, "")
	assert.Error(t, err)
}

func TestDeleteRemovesMetadataEvenWhenFileRemovalFails(t *testing.T) {
	videos := newFakeVideoRepo()
	files := newFailingFileStore()
	svc := newTestService(videos, nil, nil, files)

	doctorID := uuid.New()
	v, err := svc.Create(context.Background(), doctorID, &model.CreateVideoRequest{
		Title:    "To be deleted",
		Category: "education",
	}, strings.NewReader("bytes"), "gone.mp4")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), v.ID, doctorID)
	assert.NoError(t, err, "file removal failure must be swallowed")

	_, err = videos.Get(context.Background(), v.ID)
	assert.Error(t, err, "metadata row must be gone regardless of storage outcome")
	assert.NotEmpty(t, files.deletes, "file removal must have been attempted")
}

func TestDeleteRejectsForeignVideo(t *testing.T) {
	videos := newFakeVideoRepo()
	svc := newTestService(videos, nil, nil, nil)

	owner := uuid.New()
	v, err := svc.Create(context.Background(), owner, &model.CreateVideoRequest{
		Title:    "Owned",
		Category: "education",
	}, strings.NewReader("bytes"), "owned.mp4")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), v.ID, uuid.New())
	assert.Error(t, err)

	_, err = videos.Get(context.Background(), v.ID)
	assert.NoError(t, err, "foreign delete must not remove the row")
}

func TestListForUserUnionAcrossPatients(t *testing.T) {
	videos := newFakeVideoRepo()
	docA := uuid.New()
	docB := uuid.New()

	now := time.Now()
	mkVideo := func(doctor uuid.UUID, title string, age time.Duration) *model.Video {
		v := &model.Video{Title: title, Category: "education", UploadedBy: doctor}
		v.ID = uuid.New()
		v.CreatedAt = now.Add(-age)
		videos.videos[v.ID] = v
		return v
	}
	newest := mkVideo(docB, "newest", 0)
	middle := mkVideo(docA, "middle", time.Hour)
	oldest := mkVideo(docA, "oldest", 2*time.Hour)

	userID := uuid.New()
	patientA := &model.Patient{UserID: userID}
	patientA.ID = uuid.New()
	patientB := &model.Patient{UserID: userID}
	patientB.ID = uuid.New()
	patients := &fakePatientRepo{byUser: map[uuid.UUID][]*model.Patient{
		userID: {patientA, patientB},
	}}

	// Patient A's most recent appointment is with doctor A; B's with
	// doctor B. An older appointment with another doctor must not
	// contribute videos.
	apts := &fakeAppointmentRepo{byPatient: map[uuid.UUID][]*model.Appointment{
		patientA.ID: {
			{ID: uuid.New(), PatientID: patientA.ID, DoctorID: docA, CreatedAt: now},
			{ID: uuid.New(), PatientID: patientA.ID, DoctorID: docB, CreatedAt: now.Add(-48 * time.Hour)},
		},
		patientB.ID: {
			{ID: uuid.New(), PatientID: patientB.ID, DoctorID: docB, CreatedAt: now},
		},
	}}

	svc := newTestService(videos, patients, apts, nil)

	got, err := svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 3, "union of both doctors' videos")
	assert.Equal(t, newest.ID, got[0].ID, "sorted newest first")
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, oldest.ID, got[2].ID)

	seen := map[uuid.UUID]bool{}
	for _, v := range got {
		assert.False(t, seen[v.ID], "no duplicate video ids")
		seen[v.ID] = true
	}
}

func TestListForUserNoPatients(t *testing.T) {
	svc := newTestService(newFakeVideoRepo(), nil, nil, nil)

	got, err := svc.ListForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}
