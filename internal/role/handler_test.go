package role_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/role"
)

var _ = Describe("Role Handler", func() {
	var (
		handler *role.Handler
		router  *chi.Mux
		users   *mockUserStore
	)

	BeforeEach(func() {
		viewer := roleWithPermissions("role_viewer", "Viewer", "ev_view", "fuel_view")
		driver := roleWithPermissions("role_driver", "Driver", "ev_view", "fuel_view", "fuel_create")
		admin := roleWithPermissions("role_admin", "System Admin",
			"ev_view", "ev_update", "ev_manage", "fuel_view", "fuel_create", "fuel_delete",
			"admin_users_view", "admin_users_manage")

		repo := newMockRoleRepository(viewer, driver, admin)
		users = &mockUserStore{currentRole: driver, grantedCount: 3}
		logger := newTestLogger()
		service := role.NewService(repo, users, nil, logger)
		handler = role.NewHandler(service)

		router = chi.NewRouter()
		router.Get("/roles", handler.GetRoles)
		router.Get("/roles/{id}", handler.GetRole)
		router.Get("/users/{id}/role/preview", handler.PreviewRoleChange)
		router.Post("/users/{id}/role", handler.AssignRole)
	})

	Describe("GET /roles", func() {
		It("should list every role with a total", func() {
			req := httptest.NewRequest(http.MethodGet, "/roles", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var body struct {
				Roles []role.Role `json:"roles"`
				Total int         `json:"total"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Total).To(Equal(3))
			Expect(body.Roles).To(HaveLen(3))
		})
	})

	Describe("GET /roles/{id}", func() {
		It("should return one role", func() {
			req := httptest.NewRequest(http.MethodGet, "/roles/role_driver", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var got role.Role
			Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
			Expect(got.Name).To(Equal("Driver"))
		})

		It("should return 404 for an unknown role", func() {
			req := httptest.NewRequest(http.MethodGet, "/roles/role_ghost", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /users/{id}/role/preview", func() {
		It("should return the change preview", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/user_1/role/preview?role_id=role_viewer", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var preview role.ChangePreview
			Expect(json.NewDecoder(w.Body).Decode(&preview)).To(Succeed())
			Expect(preview.CandidateRoleName).To(Equal("Viewer"))
			Expect(preview.Significant).To(BeFalse())
		})

		It("should require the role_id query parameter", func() {
			req := httptest.NewRequest(http.MethodGet, "/users/user_1/role/preview", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /users/{id}/role", func() {
		post := func(payload string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/users/user_1/role", bytes.NewBufferString(payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("should apply an insignificant change", func() {
			w := post(`{"role_id":"role_viewer"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(users.currentRole.ID).To(Equal("role_viewer"))
		})

		It("should answer 409 with the preview for an unconfirmed significant change", func() {
			w := post(`{"role_id":"role_admin"}`)

			Expect(w.Code).To(Equal(http.StatusConflict))
			var body struct {
				Error struct {
					Code    internal.ErrorCode `json:"code"`
					Details struct {
						CandidateRoleName string `json:"candidate_role_name"`
						Significant       bool   `json:"significant"`
					} `json:"details"`
				} `json:"error"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Error.Code).To(Equal(internal.ErrCodeConfirmRequired))
			Expect(body.Error.Details.CandidateRoleName).To(Equal("System Admin"))
			Expect(body.Error.Details.Significant).To(BeTrue())
			Expect(users.currentRole.ID).To(Equal("role_driver"))
		})

		It("should apply a confirmed significant change", func() {
			w := post(`{"role_id":"role_admin","confirmed":true}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(users.currentRole.ID).To(Equal("role_admin"))
		})

		It("should reject a missing role_id", func() {
			w := post(`{}`)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
