package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/access"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/mail"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/observability"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/reconcile"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/store"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/token"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// EnrollmentService implements enrollment use cases.
type EnrollmentService struct {
	store           store.Store
	resolver        *access.Resolver
	tokens          *token.Codec
	mailer          mail.Mailer
	logger          *zap.Logger
	frontendBaseURL string
	metrics         *observability.Metrics
	newID           func() string
	now             func() time.Time
}

// SetMetrics attaches metric instruments. A nil receiver field disables
// recording, so services built without metrics keep working.
func (s *EnrollmentService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// NewEnrollmentService creates an enrollment service.
func NewEnrollmentService(st store.Store, resolver *access.Resolver, tokens *token.Codec, mailer mail.Mailer, logger *zap.Logger, frontendBaseURL string) *EnrollmentService {
	return &EnrollmentService{
		store:           st,
		resolver:        resolver,
		tokens:          tokens,
		mailer:          mailer,
		logger:          logger,
		frontendBaseURL: frontendBaseURL,
		newID:           uuid.NewString,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// CreateEnrollmentRequest carries the fields of a new enrollment. Email is
// required for anonymous enrollees; the edit link is mailed there.
type CreateEnrollmentRequest struct {
	Name        string
	Comment     string
	Email       string
	AdditionIDs []string
	Driver      *model.Driver
	Passenger   *model.Passenger
}

// UpdateEnrollmentRequest carries a partial enrollment update. Nil fields
// are left unchanged.
type UpdateEnrollmentRequest struct {
	Name        *string
	Comment     *string
	AdditionIDs []string
	Driver      *model.Driver
	Passenger   *model.Passenger
}

// EnrollmentResult is a created enrollment plus, for anonymous enrollees,
// the capability token that authorizes later edits.
type EnrollmentResult struct {
	Enrollment model.Enrollment
	Token      string
}

// Create adds an enrollment to the appointment behind link.
func (s *EnrollmentService) Create(ctx context.Context, id model.Identity, link string, req CreateEnrollmentRequest) (EnrollmentResult, error) {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return EnrollmentResult{}, err
	}

	canManage := s.resolver.CanManageAppointment(&appt, id)
	if appt.Deadline != nil && s.now().After(*appt.Deadline) && !canManage {
		return EnrollmentResult{}, model.NewGoneError("enrollment deadline has passed")
	}
	if appt.MaxEnrollments != nil && len(appt.Enrollments) >= *appt.MaxEnrollments && !canManage {
		return EnrollmentResult{}, model.NewGoneError("appointment has no free spots")
	}

	name := strings.TrimSpace(req.Name)
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if !id.Authenticated() && strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "mail")
	}
	if len(missing) > 0 {
		return EnrollmentResult{}, model.NewMissingValuesError(missing...)
	}

	for _, existing := range appt.Enrollments {
		if strings.EqualFold(existing.Name, name) {
			return EnrollmentResult{}, model.NewDuplicateValuesError("Name is already enrolled", "name")
		}
	}

	driver, passenger, err := resolveTransport(appt, req.Driver, req.Passenger)
	if err != nil {
		return EnrollmentResult{}, err
	}

	additions, err := reconcile.Select(appt.Additions, req.AdditionIDs)
	if err != nil {
		return EnrollmentResult{}, err
	}

	enr := model.Enrollment{
		ID:        s.newID(),
		Name:      name,
		Comment:   model.NormalizeComment(req.Comment),
		CreatorID: id.SubjectID(),
		Additions: additions,
		Driver:    driver,
		Passenger: passenger,
		CreatedAt: s.now(),
	}

	if err := s.store.CreateEnrollment(ctx, appt.ID, enr); err != nil {
		return EnrollmentResult{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordEnrollmentCreated(!id.Authenticated())
	}

	result := EnrollmentResult{Enrollment: enr}
	if !id.Authenticated() {
		result.Token = s.tokens.Derive(enr.ID)
		msg := mail.EditLinkMessage(req.Email, appt.Title, appt.Link, enr.ID, result.Token, s.frontendBaseURL)
		err := s.mailer.Send(ctx, msg)
		if s.metrics != nil {
			s.metrics.RecordMailSent(err == nil)
		}
		if err != nil {
			// The enrollment stands even if the mail fails.
			s.logger.Warn("sending enrollment edit link failed",
				zap.String("enrollment_id", enr.ID),
				zap.Error(err),
			)
		}
	}
	return result, nil
}

// Update applies a partial update to an enrollment. suppliedToken is the
// capability token from the request, if any.
func (s *EnrollmentService) Update(ctx context.Context, id model.Identity, link, enrollmentID, suppliedToken string, req UpdateEnrollmentRequest) (model.Enrollment, error) {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return model.Enrollment{}, err
	}
	enr, found := appt.EnrollmentByID(enrollmentID)
	if !found {
		return model.Enrollment{}, model.NewNotFoundError("enrollment not found")
	}

	if !s.resolver.CanManageEnrollment(&appt, &enr, id, suppliedToken) {
		return model.Enrollment{}, model.NewInsufficientPermissionsError()
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return model.Enrollment{}, model.NewInvalidValuesError("name")
		}
		for _, existing := range appt.Enrollments {
			if existing.ID != enr.ID && strings.EqualFold(existing.Name, name) {
				return model.Enrollment{}, model.NewDuplicateValuesError("Name is already enrolled", "name")
			}
		}
		enr.Name = name
	}
	if req.Comment != nil {
		enr.Comment = model.NormalizeComment(*req.Comment)
	}
	if req.Driver != nil || req.Passenger != nil {
		driver, passenger, err := resolveTransport(appt, req.Driver, req.Passenger)
		if err != nil {
			return model.Enrollment{}, err
		}
		enr.Driver = driver
		enr.Passenger = passenger
	}
	if req.AdditionIDs != nil {
		additions, err := reconcile.Select(appt.Additions, req.AdditionIDs)
		if err != nil {
			return model.Enrollment{}, err
		}
		enr.Additions = additions
	}

	if err := s.store.UpdateEnrollment(ctx, appt.ID, enr); err != nil {
		return model.Enrollment{}, err
	}
	return enr, nil
}

// Delete removes an enrollment. suppliedToken is the capability token from
// the request, if any.
func (s *EnrollmentService) Delete(ctx context.Context, id model.Identity, link, enrollmentID, suppliedToken string) error {
	appt, err := s.store.AppointmentByLink(ctx, link)
	if err != nil {
		return err
	}
	enr, found := appt.EnrollmentByID(enrollmentID)
	if !found {
		return model.NewNotFoundError("enrollment not found")
	}

	if !s.resolver.CanManageEnrollment(&appt, &enr, id, suppliedToken) {
		return model.NewInsufficientPermissionsError()
	}
	if err := s.store.DeleteEnrollment(ctx, appt.ID, enrollmentID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.EnrollmentsDeletedTotal.Inc()
	}
	return nil
}

// resolveTransport validates the driver/passenger choice against the
// appointment's driver addition setting. With the addition enabled, exactly
// one of the two must be present. With it disabled, both are discarded.
func resolveTransport(appt model.Appointment, driver *model.Driver, passenger *model.Passenger) (*model.Driver, *model.Passenger, error) {
	if !appt.DriverAddition {
		return nil, nil, nil
	}
	if driver == nil && passenger == nil {
		return nil, nil, model.NewMissingValuesError("driver")
	}
	if driver != nil && passenger != nil {
		return nil, nil, model.NewInvalidValuesError("driver", "passenger")
	}
	if driver != nil {
		if driver.Service < 1 || driver.Service > 3 {
			return nil, nil, model.NewInvalidValuesError("service")
		}
		if driver.Seats < 1 {
			return nil, nil, model.NewInvalidValuesError("seats")
		}
		d := *driver
		return &d, nil, nil
	}
	if passenger.Requirement < 1 || passenger.Requirement > 3 {
		return nil, nil, model.NewInvalidValuesError("requirement")
	}
	p := *passenger
	return nil, &p, nil
}
