package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/service"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

type appointmentRequest struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Link           string              `json:"link"`
	Location       string              `json:"location"`
	Date           *time.Time          `json:"date"`
	Deadline       *time.Time          `json:"deadline"`
	MaxEnrollments *int                `json:"maxEnrollments"`
	DriverAddition bool                `json:"driverAddition"`
	Hidden         bool                `json:"hidden"`
	Additions      []model.AdditionRef `json:"additions"`
}

type appointmentUpdateRequest struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	Link           *string             `json:"link"`
	Location       *string             `json:"location"`
	Date           *time.Time          `json:"date"`
	Deadline       *time.Time          `json:"deadline"`
	MaxEnrollments *int                `json:"maxEnrollments"`
	DriverAddition *bool               `json:"driverAddition"`
	Hidden         *bool               `json:"hidden"`
	Additions      []model.AdditionRef `json:"additions"`
}

type additionView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type appointmentView struct {
	Link           string              `json:"link"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Location       string              `json:"location,omitempty"`
	Date           *time.Time          `json:"date,omitempty"`
	Deadline       *time.Time          `json:"deadline,omitempty"`
	MaxEnrollments *int                `json:"maxEnrollments,omitempty"`
	DriverAddition bool                `json:"driverAddition"`
	Hidden         bool                `json:"hidden"`
	Additions      []additionView      `json:"additions"`
	Enrollments    []enrollmentView    `json:"enrollments"`
	Relations      []model.RelationTag `json:"relations,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func toAdditionViews(additions []model.Addition) []additionView {
	views := make([]additionView, 0, len(additions))
	for _, add := range additions {
		views = append(views, additionView{ID: add.ID, Name: add.Name, Order: add.Order})
	}
	return views
}

// toAppointmentView renders an appointment for the caller. The raw creator
// id of an enrollment is exposed only to callers who may manage the
// appointment; everyone else learns no more than whether the enrollment was
// created by a logged-in user.
func toAppointmentView(view service.AppointmentView) appointmentView {
	appt := view.Appointment
	enrollments := make([]enrollmentView, 0, len(appt.Enrollments))
	for _, enr := range appt.Enrollments {
		enrollments = append(enrollments, toEnrollmentView(enr, view.CanManage))
	}
	return appointmentView{
		Link:           appt.Link,
		Title:          appt.Title,
		Description:    appt.Description,
		Location:       appt.Location,
		Date:           appt.Date,
		Deadline:       appt.Deadline,
		MaxEnrollments: appt.MaxEnrollments,
		DriverAddition: appt.DriverAddition,
		Hidden:         appt.Hidden,
		Additions:      toAdditionViews(appt.Additions),
		Enrollments:    enrollments,
		Relations:      view.Relations,
		CreatedAt:      appt.CreatedAt,
	}
}

func handleCreateAppointment(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewInvalidValuesError("body"))
			return
		}

		appt, err := svc.Create(r.Context(), model.IdentityFrom(r.Context()), service.CreateAppointmentRequest{
			Title:          req.Title,
			Description:    req.Description,
			Link:           req.Link,
			Location:       req.Location,
			Date:           req.Date,
			Deadline:       req.Deadline,
			MaxEnrollments: req.MaxEnrollments,
			DriverAddition: req.DriverAddition,
			Hidden:         req.Hidden,
			Additions:      req.Additions,
		})
		if err != nil {
			WriteError(w, err)
			return
		}

		w.Header().Set("Location", "/appointments/"+appt.Link)
		WriteJSON(w, http.StatusCreated, toAppointmentView(service.AppointmentView{
			Appointment: appt,
			Relations:   []model.RelationTag{model.RelationCreator},
			CanManage:   true,
		}))
	}
}

func handleGetAppointment(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		view, err := svc.Get(r.Context(), model.IdentityFrom(r.Context()), link, r.URL.RawQuery)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, toAppointmentView(view))
	}
}

func handleUpdateAppointment(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		var req appointmentUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewInvalidValuesError("body"))
			return
		}

		appt, err := svc.Update(r.Context(), model.IdentityFrom(r.Context()), link, service.UpdateAppointmentRequest{
			Title:          req.Title,
			Description:    req.Description,
			Link:           req.Link,
			Location:       req.Location,
			Date:           req.Date,
			Deadline:       req.Deadline,
			MaxEnrollments: req.MaxEnrollments,
			DriverAddition: req.DriverAddition,
			Hidden:         req.Hidden,
			Additions:      req.Additions,
		})
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, toAppointmentView(service.AppointmentView{
			Appointment: appt,
			CanManage:   true,
		}))
	}
}

func handleRelevantAppointments(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pinLinks := r.URL.Query()["pin"]

		views, err := svc.Relevant(r.Context(), model.IdentityFrom(r.Context()), pinLinks)
		if err != nil {
			WriteError(w, err)
			return
		}

		out := make([]appointmentView, 0, len(views))
		for _, view := range views {
			out = append(out, toAppointmentView(view))
		}
		WriteJSON(w, http.StatusOK, out)
	}
}

func handleAddAdministrator(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewInvalidValuesError("body"))
			return
		}
		if req.Username == "" {
			WriteError(w, model.NewMissingValuesError("username"))
			return
		}

		if err := svc.AddAdministrator(r.Context(), model.IdentityFrom(r.Context()), link, req.Username); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}

func handleRemoveAdministrator(svc *service.AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")
		username := chi.URLParam(r, "username")

		if err := svc.RemoveAdministrator(r.Context(), model.IdentityFrom(r.Context()), link, username); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}

func handlePinAppointment(svc *service.AppointmentService, pinned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		if err := svc.SetPinned(r.Context(), model.IdentityFrom(r.Context()), link, pinned); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}
