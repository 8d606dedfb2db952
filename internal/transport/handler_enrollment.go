package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/service"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

type driverView struct {
	Service int `json:"service"`
	Seats   int `json:"seats"`
}

type passengerView struct {
	Requirement int `json:"requirement"`
}

type enrollmentRequest struct {
	Name        string         `json:"name"`
	Comment     string         `json:"comment"`
	Email       string         `json:"mail"`
	AdditionIDs []string       `json:"additions"`
	Driver      *driverView    `json:"driver"`
	Passenger   *passengerView `json:"passenger"`
}

type enrollmentUpdateRequest struct {
	Name        *string        `json:"name"`
	Comment     *string        `json:"comment"`
	AdditionIDs []string       `json:"additions"`
	Driver      *driverView    `json:"driver"`
	Passenger   *passengerView `json:"passenger"`
}

type enrollmentView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Comment       string         `json:"comment,omitempty"`
	CreatedByUser bool           `json:"createdByUser"`
	CreatorID     string         `json:"creatorId,omitempty"`
	Additions     []additionView `json:"additions"`
	Driver        *driverView    `json:"driver,omitempty"`
	Passenger     *passengerView `json:"passenger,omitempty"`
	Token         string         `json:"token,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func toEnrollmentView(enr model.Enrollment, canManage bool) enrollmentView {
	view := enrollmentView{
		ID:            enr.ID,
		Name:          enr.Name,
		Comment:       enr.Comment,
		CreatedByUser: enr.CreatedByUser(),
		Additions:     toAdditionViews(enr.Additions),
		CreatedAt:     enr.CreatedAt,
	}
	if canManage {
		view.CreatorID = enr.CreatorID
	}
	if enr.Driver != nil {
		view.Driver = &driverView{Service: enr.Driver.Service, Seats: enr.Driver.Seats}
	}
	if enr.Passenger != nil {
		view.Passenger = &passengerView{Requirement: enr.Passenger.Requirement}
	}
	return view
}

func toDriver(v *driverView) *model.Driver {
	if v == nil {
		return nil
	}
	return &model.Driver{Service: v.Service, Seats: v.Seats}
}

func toPassenger(v *passengerView) *model.Passenger {
	if v == nil {
		return nil
	}
	return &model.Passenger{Requirement: v.Requirement}
}

func handleCreateEnrollment(svc *service.EnrollmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")

		var req enrollmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewInvalidValuesError("body"))
			return
		}

		result, err := svc.Create(r.Context(), model.IdentityFrom(r.Context()), link, service.CreateEnrollmentRequest{
			Name:        req.Name,
			Comment:     req.Comment,
			Email:       req.Email,
			AdditionIDs: req.AdditionIDs,
			Driver:      toDriver(req.Driver),
			Passenger:   toPassenger(req.Passenger),
		})
		if err != nil {
			WriteError(w, err)
			return
		}

		view := toEnrollmentView(result.Enrollment, false)
		view.Token = result.Token
		WriteJSON(w, http.StatusCreated, view)
	}
}

func handleUpdateEnrollment(svc *service.EnrollmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")
		enrollmentID := chi.URLParam(r, "enrollmentId")
		suppliedToken := r.URL.Query().Get("token")

		var req enrollmentUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewInvalidValuesError("body"))
			return
		}

		enr, err := svc.Update(r.Context(), model.IdentityFrom(r.Context()), link, enrollmentID, suppliedToken, service.UpdateEnrollmentRequest{
			Name:        req.Name,
			Comment:     req.Comment,
			AdditionIDs: req.AdditionIDs,
			Driver:      toDriver(req.Driver),
			Passenger:   toPassenger(req.Passenger),
		})
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, toEnrollmentView(enr, false))
	}
}

func handleDeleteEnrollment(svc *service.EnrollmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link := chi.URLParam(r, "link")
		enrollmentID := chi.URLParam(r, "enrollmentId")
		suppliedToken := r.URL.Query().Get("token")

		if err := svc.Delete(r.Context(), model.IdentityFrom(r.Context()), link, enrollmentID, suppliedToken); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusNoContent, nil)
	}
}
