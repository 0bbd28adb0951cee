package bulk_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/bulk"
	"github.com/fleetops/access-management/internal/core/events"
	"github.com/fleetops/access-management/internal/role"
	"github.com/fleetops/access-management/internal/user"
)

// mockJobRepository is a concurrency-safe in-memory bulk.JobRepository. The
// worker goroutine writes while the test polls, so every access locks.
type mockJobRepository struct {
	mu   sync.Mutex
	jobs map[string]*bulk.Job
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[string]*bulk.Job)}
}

func (m *mockJobRepository) Create(j *bulk.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *j
	m.jobs[j.ID] = &snapshot
	return nil
}

func (m *mockJobRepository) Update(j *bulk.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *j
	m.jobs[j.ID] = &snapshot
	return nil
}

func (m *mockJobRepository) GetByID(id string) (*bulk.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	snapshot := *j
	return &snapshot, nil
}

func (m *mockJobRepository) NextPending() (*bulk.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*bulk.Job
	for _, j := range m.jobs {
		if j.Status == bulk.JobPending {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		return nil, errors.New("no pending jobs")
	}
	sort.Slice(pending, func(i, k int) bool { return pending[i].CreatedAt.Before(pending[k].CreatedAt) })
	snapshot := *pending[0]
	return &snapshot, nil
}

func (m *mockJobRepository) List(limit int) ([]*bulk.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bulk.Job
	for _, j := range m.jobs {
		snapshot := *j
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockUserLoader serves a fixed user set.
type mockUserLoader struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMockUserLoader(users ...*user.User) *mockUserLoader {
	m := &mockUserLoader{users: make(map[string]*user.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserLoader) GetByIDs(ids []string) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*user.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// mockActions records the per-user actions the worker applies.
type mockActions struct {
	mu          sync.Mutex
	statuses    map[string]user.Status
	assigned    map[string]string
	demoted     []string
	granted     map[string][]string
	revoked     map[string][]string
	statusError error
	actors      []string
}

func newMockActions() *mockActions {
	return &mockActions{
		statuses: make(map[string]user.Status),
		assigned: make(map[string]string),
		granted:  make(map[string][]string),
		revoked:  make(map[string][]string),
	}
}

func (m *mockActions) SetStatus(ctx context.Context, id string, status user.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusError != nil {
		return m.statusError
	}
	m.statuses[id] = status
	m.actors = append(m.actors, internal.ActorFromContext(ctx))
	return nil
}

func (m *mockActions) Assign(ctx context.Context, userID, roleID string, confirmed bool) (*role.ChangePreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !confirmed {
		return nil, internal.ErrConfirmRequired
	}
	m.assigned[userID] = roleID
	return &role.ChangePreview{UserID: userID, CandidateRoleID: roleID}, nil
}

func (m *mockActions) Demote(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demoted = append(m.demoted, userID)
	return nil
}

func (m *mockActions) Grant(ctx context.Context, userID string, permissionIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted[userID] = permissionIDs
	return nil
}

func (m *mockActions) Revoke(ctx context.Context, userID string, permissionIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[userID] = permissionIDs
	return nil
}

var _ = Describe("BulkService", func() {
	var (
		service *bulk.Service
		repo    *mockJobRepository
		loader  *mockUserLoader
		actions *mockActions
		ctx     context.Context
		cancel  context.CancelFunc
	)

	BeforeEach(func() {
		repo = newMockJobRepository()
		loader = newMockUserLoader(
			activeUser("user_a", "Ada"),
			activeUser("user_b", "Bea"),
			inactiveUser("user_c", "Cid"),
		)
		actions = newMockActions()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = bulk.NewService(repo, loader, actions, actions, actions, events.NewEventBus(logger), logger)

		var runCtx context.Context
		runCtx, cancel = context.WithCancel(context.Background())
		go service.Run(runCtx)

		ctx = internal.ContextWithActor(context.Background(), "user_admin")
	})

	AfterEach(func() {
		cancel()
	})

	Describe("Enqueue", func() {
		It("should reject an invalid request", func() {
			_, err := service.Enqueue(ctx, bulk.CreateOperationDTO{Type: "explode", UserIDs: []string{"user_a"}})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should reject a selection referencing an unknown user", func() {
			_, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpDeactivate),
				UserIDs: []string{"user_a", "user_ghost"},
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUserNotFound))
		})

		It("should reject activate when no selected user is inactive", func() {
			_, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpActivate),
				UserIDs: []string{"user_a", "user_b"},
			})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no selected user is eligible"))
		})

		It("should persist a pending job stamped with the acting user", func() {
			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpAssignRole),
				UserIDs: []string{"user_a", "user_b"},
				RoleID:  "role_driver",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(job.Status).To(Equal(bulk.JobPending))
			Expect(job.InitiatedBy).To(Equal("user_admin"))
			Expect(job.Total).To(Equal(2))
			Expect(job.UserIDs).To(Equal([]string{"user_a", "user_b"}))
		})

		It("should dedupe user ids while keeping first positions", func() {
			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpDeactivate),
				UserIDs: []string{"user_b", "user_a", "user_b"},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(job.UserIDs).To(Equal([]string{"user_b", "user_a"}))
			Expect(job.Total).To(Equal(2))
		})
	})

	Describe("worker", func() {
		waitForStatus := func(jobID, status string) *bulk.Job {
			var got *bulk.Job
			Eventually(func() string {
				j, err := repo.GetByID(jobID)
				if err != nil {
					return ""
				}
				got = j
				return j.Status
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(status))
			return got
		}

		It("should run a deactivate job to completion with live counters", func() {
			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpDeactivate),
				UserIDs: []string{"user_a", "user_b"},
				Reason:  "fleet decommissioned",
			})
			Expect(err).ToNot(HaveOccurred())

			finished := waitForStatus(job.ID, bulk.JobCompleted)

			Expect(finished.Completed).To(Equal(2))
			Expect(finished.Failed).To(Equal(0))
			Expect(finished.Errors).To(BeEmpty())
			Expect(finished.StartedAt).ToNot(BeNil())
			Expect(finished.CompletedAt).ToNot(BeNil())

			actions.mu.Lock()
			defer actions.mu.Unlock()
			Expect(actions.statuses["user_a"]).To(Equal(user.StatusInactive))
			Expect(actions.statuses["user_b"]).To(Equal(user.StatusInactive))
			Expect(actions.actors).To(ContainElement("user_admin"))
		})

		It("should assign roles with confirmation already granted", func() {
			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpAssignRole),
				UserIDs: []string{"user_a", "user_c"},
				RoleID:  "role_mechanic",
			})
			Expect(err).ToNot(HaveOccurred())

			waitForStatus(job.ID, bulk.JobCompleted)

			actions.mu.Lock()
			defer actions.mu.Unlock()
			Expect(actions.assigned["user_a"]).To(Equal("role_mechanic"))
			Expect(actions.assigned["user_c"]).To(Equal("role_mechanic"))
		})

		It("should demote on remove_role", func() {
			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpRemoveRole),
				UserIDs: []string{"user_b"},
			})
			Expect(err).ToNot(HaveOccurred())

			waitForStatus(job.ID, bulk.JobCompleted)

			actions.mu.Lock()
			defer actions.mu.Unlock()
			Expect(actions.demoted).To(Equal([]string{"user_b"}))
		})

		It("should pass permission ids through grant and revoke", func() {
			grantJob, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:          string(bulk.OpGrantPermission),
				UserIDs:       []string{"user_a"},
				PermissionIDs: []string{"fuel_view", "fuel_create"},
			})
			Expect(err).ToNot(HaveOccurred())
			waitForStatus(grantJob.ID, bulk.JobCompleted)

			revokeJob, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:          string(bulk.OpRevokePermission),
				UserIDs:       []string{"user_a"},
				PermissionIDs: []string{"fuel_create"},
			})
			Expect(err).ToNot(HaveOccurred())
			waitForStatus(revokeJob.ID, bulk.JobCompleted)

			actions.mu.Lock()
			defer actions.mu.Unlock()
			Expect(actions.granted["user_a"]).To(Equal([]string{"fuel_view", "fuel_create"}))
			Expect(actions.revoked["user_a"]).To(Equal([]string{"fuel_create"}))
		})

		It("should record per-item failures and still complete", func() {
			actions.mu.Lock()
			actions.statusError = errors.New("user is already inactive")
			actions.mu.Unlock()

			job, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpActivate),
				UserIDs: []string{"user_c"},
			})
			Expect(err).ToNot(HaveOccurred())

			finished := waitForStatus(job.ID, bulk.JobFailed)

			Expect(finished.Completed).To(Equal(0))
			Expect(finished.Failed).To(Equal(1))
			Expect(finished.Errors).To(HaveLen(1))
			Expect(finished.Errors[0].UserID).To(Equal("user_c"))
			Expect(finished.Errors[0].Error).To(ContainSubstring("already inactive"))
		})
	})

	Describe("GetJob and ListJobs", func() {
		It("should return not found for an unknown job", func() {
			_, err := service.GetJob(ctx, "job_ghost")

			Expect(err).To(Equal(internal.ErrJobNotFound))
		})

		It("should list recent jobs", func() {
			_, err := service.Enqueue(ctx, bulk.CreateOperationDTO{
				Type:    string(bulk.OpDeactivate),
				UserIDs: []string{"user_a"},
			})
			Expect(err).ToNot(HaveOccurred())

			jobs, err := service.ListJobs(ctx, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(len(jobs)).To(BeNumerically(">=", 1))
		})
	})
})
