// Package service implements the appointment and enrollment use cases on
// top of the store, access resolver, and directory.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/access"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/directory"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/observability"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/reconcile"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/store"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/validate"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// AppointmentService implements appointment use cases.
type AppointmentService struct {
	store      store.Store
	directory  directory.Directory
	resolver   *access.Resolver
	reconciler *reconcile.Reconciler
	metrics    *observability.Metrics
	newID      func() string
	now        func() time.Time
}

// SetMetrics attaches metric instruments. A nil receiver field disables
// recording, so services built without metrics keep working.
func (s *AppointmentService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// NewAppointmentService creates an appointment service.
func NewAppointmentService(st store.Store, dir directory.Directory, resolver *access.Resolver) *AppointmentService {
	return &AppointmentService{
		store:      st,
		directory:  dir,
		resolver:   resolver,
		reconciler: reconcile.NewReconciler(),
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateAppointmentRequest carries the fields of a new appointment.
type CreateAppointmentRequest struct {
	Title          string
	Description    string
	Link           string
	Location       string
	Date           *time.Time
	Deadline       *time.Time
	MaxEnrollments *int
	DriverAddition bool
	Hidden         bool
	Additions      []model.AdditionRef
}

// UpdateAppointmentRequest carries a partial appointment update. Nil fields
// are left unchanged.
type UpdateAppointmentRequest struct {
	Title          *string
	Description    *string
	Link           *string
	Location       *string
	Date           *time.Time
	Deadline       *time.Time
	MaxEnrollments *int
	DriverAddition *bool
	Hidden         *bool
	Additions      []model.AdditionRef
}

// AppointmentView is an appointment together with the caller's relations to
// it and whether the caller may manage it.
type AppointmentView struct {
	Appointment model.Appointment
	Relations   []model.RelationTag
	CanManage   bool
}

// Create creates a new appointment owned by the caller.
func (s *AppointmentService) Create(ctx context.Context, id model.Identity, req CreateAppointmentRequest) (model.Appointment, error) {
	if !id.Authenticated() {
		return model.Appointment{}, model.NewUnauthorizedError("authentication required")
	}

	var missing []string
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if req.Deadline == nil {
		missing = append(missing, "deadline")
	}
	if len(missing) > 0 {
		return model.Appointment{}, model.NewMissingValuesError(missing...)
	}

	if err := validate.Window(req.Date, req.Deadline); err != nil {
		return model.Appointment{}, err
	}

	link := strings.TrimSpace(req.Link)
	if link == "" {
		link = generatedLink()
	} else {
		taken, err := s.store.LinkExists(ctx, link)
		if err != nil {
			return model.Appointment{}, err
		}
		if taken {
			return model.Appointment{}, model.NewDuplicateValuesError("Appointment link already in use", "link")
		}
	}

	additions, err := s.reconciler.Apply(nil, req.Additions)
	if s.metrics != nil {
		s.metrics.RecordAdditionReconcile(err == nil)
	}
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:             s.newID(),
		Link:           link,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Location:       req.Location,
		Date:           req.Date,
		Deadline:       req.Deadline,
		MaxEnrollments: req.MaxEnrollments,
		DriverAddition: req.DriverAddition,
		Hidden:         req.Hidden,
		CreatorID:      id.SubjectID(),
		Additions:      additions,
		CreatedAt:      s.now(),
	}

	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return model.Appointment{}, err
	}
	if s.metrics != nil {
		s.metrics.AppointmentsCreatedTotal.Inc()
	}
	return appt, nil
}

// Get retrieves an appointment by link with the enrollment roster filtered
// to what the caller may see. rawQuery is the request's raw query string,
// carrying any perm/token capability pairs.
func (s *AppointmentService) Get(ctx context.Context, id model.Identity, link, rawQuery string) (AppointmentView, error) {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return AppointmentView{}, err
	}

	pairs := access.ParseTokenPairs(rawQuery)
	appt.Enrollments = s.resolver.VisibleEnrollments(&appt, id, pairs)

	return AppointmentView{
		Appointment: appt,
		Relations:   s.resolver.Classify(&appt, id, nil),
		CanManage:   s.resolver.CanManageAppointment(&appt, id),
	}, nil
}

// Update applies a partial update to an appointment. Only the creator and
// administrators may update.
func (s *AppointmentService) Update(ctx context.Context, id model.Identity, link string, req UpdateAppointmentRequest) (model.Appointment, error) {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return model.Appointment{}, err
	}
	if !s.resolver.CanManageAppointment(&appt, id) {
		return model.Appointment{}, model.NewInsufficientPermissionsError()
	}

	if req.Date != nil {
		deadline := appt.Deadline
		if req.Deadline != nil {
			deadline = req.Deadline
		}
		if err := validate.Date(req.Date, deadline); err != nil {
			return model.Appointment{}, err
		}
		appt.Date = req.Date
	}
	if req.Deadline != nil {
		if err := validate.Deadline(appt.Date, req.Deadline); err != nil {
			return model.Appointment{}, err
		}
		appt.Deadline = req.Deadline
	}
	if req.Link != nil && *req.Link != appt.Link {
		newLink := strings.TrimSpace(*req.Link)
		if newLink == "" {
			return model.Appointment{}, model.NewInvalidValuesError("link")
		}
		taken, err := s.store.LinkExists(ctx, newLink)
		if err != nil {
			return model.Appointment{}, err
		}
		if taken {
			return model.Appointment{}, model.NewDuplicateValuesError("Appointment link already in use", "link")
		}
		appt.Link = newLink
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return model.Appointment{}, model.NewInvalidValuesError("title")
		}
		appt.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		appt.Description = *req.Description
	}
	if req.Location != nil {
		appt.Location = *req.Location
	}
	if req.MaxEnrollments != nil {
		appt.MaxEnrollments = req.MaxEnrollments
	}
	if req.DriverAddition != nil {
		appt.DriverAddition = *req.DriverAddition
	}
	if req.Hidden != nil {
		appt.Hidden = *req.Hidden
	}
	if req.Additions != nil {
		additions, err := s.reconciler.Apply(appt.Additions, req.Additions)
		if s.metrics != nil {
			s.metrics.RecordAdditionReconcile(err == nil)
		}
		if err != nil {
			return model.Appointment{}, err
		}
		appt.Additions = additions
	}

	if err := s.store.UpdateAppointment(ctx, appt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// AddAdministrator grants a user administrator rights on an appointment.
// Only the creator may manage administrators. The identifier is resolved
// through the directory before any mutation.
func (s *AppointmentService) AddAdministrator(ctx context.Context, id model.Identity, link, identifier string) error {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return err
	}
	if !s.resolver.IsCreator(&appt, id) {
		return model.NewInsufficientPermissionsError()
	}

	account, err := s.directory.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}

	for _, adminID := range appt.AdministratorIDs {
		if adminID == account.SubjectID {
			return model.NewDuplicateValuesError("User is already an administrator", "username")
		}
	}

	appt.AdministratorIDs = append(appt.AdministratorIDs, account.SubjectID)
	return s.store.UpdateAppointment(ctx, appt)
}

// RemoveAdministrator revokes a user's administrator rights. Only the
// creator may manage administrators.
func (s *AppointmentService) RemoveAdministrator(ctx context.Context, id model.Identity, link, identifier string) error {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return err
	}
	if !s.resolver.IsCreator(&appt, id) {
		return model.NewInsufficientPermissionsError()
	}

	account, err := s.directory.ResolveUser(ctx, identifier)
	if err != nil {
		return err
	}

	for i, adminID := range appt.AdministratorIDs {
		if adminID == account.SubjectID {
			appt.AdministratorIDs = append(appt.AdministratorIDs[:i], appt.AdministratorIDs[i+1:]...)
			return s.store.UpdateAppointment(ctx, appt)
		}
	}
	return model.NewNotFoundError("user is not an administrator of this appointment")
}

// SetPinned pins or unpins an appointment for the caller.
func (s *AppointmentService) SetPinned(ctx context.Context, id model.Identity, link string, pinned bool) error {
	if !id.Authenticated() {
		return model.NewUnauthorizedError("authentication required")
	}

	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return err
	}

	for i, pinnerID := range appt.PinnerIDs {
		if pinnerID == id.SubjectID() {
			if pinned {
				return nil
			}
			appt.PinnerIDs = append(appt.PinnerIDs[:i], appt.PinnerIDs[i+1:]...)
			return s.store.UpdateAppointment(ctx, appt)
		}
	}
	if !pinned {
		return nil
	}
	appt.PinnerIDs = append(appt.PinnerIDs, id.SubjectID())
	return s.store.UpdateAppointment(ctx, appt)
}

// Relevant lists appointments the caller relates to, each tagged with the
// caller's relations. pinLinks are client-side pins from unauthenticated
// sessions; they count as PINNED for classification.
func (s *AppointmentService) Relevant(ctx context.Context, id model.Identity, pinLinks []string) ([]AppointmentView, error) {
	if !id.Authenticated() && len(pinLinks) == 0 {
		return nil, nil
	}

	appts, err := s.store.RelevantAppointments(ctx, id.SubjectID(), pinLinks)
	if err != nil {
		return nil, err
	}

	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		appt.Enrollments = s.resolver.VisibleEnrollments(&appt, id, nil)
		views = append(views, AppointmentView{
			Appointment: appt,
			Relations:   s.resolver.Classify(&appt, id, pinLinks),
			CanManage:   s.resolver.CanManageAppointment(&appt, id),
		})
	}
	return views, nil
}

// generatedLink returns a short random link for appointments created
// without an explicit one.
func generatedLink() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
