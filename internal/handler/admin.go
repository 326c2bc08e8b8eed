package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/service"
)

// AdminHandler serves the staff-only directory routes. The role gate has
// already established role=staff by the time these run; the handlers only do
// lookups and shaping.
type AdminHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(directory *service.DirectoryService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{directory: directory, logger: logger}
}

type studentsResponse struct {
	Students []model.User `json:"students"`
}

// HandleListStudents returns every student record.
//
// HTTP: GET /api/admin/students
// Auth: staff only
func (h *AdminHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.directory.Students(r.Context())
	if err != nil {
		h.logger.Error("listing students failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, studentsResponse{Students: students})
}

type studentResponse struct {
	Student *model.User `json:"student"`
}

// HandleGetStudent returns one student record by id.
//
// HTTP: GET /api/admin/student/{id}
// Auth: staff only
//
// Unknown ids and ids belonging to non-students both answer 404.
func (h *AdminHandler) HandleGetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	student, err := h.directory.Student(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, studentResponse{Student: student})
}
