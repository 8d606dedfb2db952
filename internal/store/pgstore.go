package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// PgStore is a PostgreSQL-backed Store using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// CreateAppointment inserts a new appointment with its additions,
// administrators, and pinners in one transaction.
func (s *PgStore) CreateAppointment(ctx context.Context, appt model.Appointment) error {
	taken, err := s.LinkExists(ctx, appt.Link)
	if err != nil {
		return err
	}
	if taken {
		return model.NewDuplicateValuesError("Appointment link already in use", "link")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, link, title, description, location,
			date, deadline, max_enrollments, driver_addition, hidden,
			creator_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)`,
		appt.ID, appt.Link, appt.Title, appt.Description, appt.Location,
		appt.Date, appt.Deadline, appt.MaxEnrollments, appt.DriverAddition, appt.Hidden,
		appt.CreatorID, appt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := insertRelations(ctx, tx, appt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppointmentByLink retrieves an appointment by its link.
func (s *PgStore) AppointmentByLink(ctx context.Context, link string) (model.Appointment, error) {
	var appt model.Appointment
	err := s.pool.QueryRow(ctx, `
		SELECT id, link, title, description, location,
		       date, deadline, max_enrollments, driver_addition, hidden,
		       creator_id, created_at
		FROM appointments
		WHERE link = $1`,
		link,
	).Scan(
		&appt.ID, &appt.Link, &appt.Title, &appt.Description, &appt.Location,
		&appt.Date, &appt.Deadline, &appt.MaxEnrollments, &appt.DriverAddition, &appt.Hidden,
		&appt.CreatorID, &appt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", link),
		)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("query appointment: %w", err)
	}

	if err := s.loadRelations(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateAppointment persists an updated appointment, replacing its
// additions, administrators, and pinners wholesale.
func (s *PgStore) UpdateAppointment(ctx context.Context, appt model.Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments SET
			link = $1,
			title = $2,
			description = $3,
			location = $4,
			date = $5,
			deadline = $6,
			max_enrollments = $7,
			driver_addition = $8,
			hidden = $9
		WHERE id = $10`,
		appt.Link, appt.Title, appt.Description, appt.Location,
		appt.Date, appt.Deadline, appt.MaxEnrollments, appt.DriverAddition, appt.Hidden,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", appt.ID),
		)
	}

	// Replace relations wholesale. Enrollment addition references survive
	// because surviving additions keep their IDs.
	for _, table := range []string{"additions", "appointment_administrators", "appointment_pinners"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE appointment_id = $1", table), appt.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := insertRelations(ctx, tx, appt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LinkExists reports whether an appointment with the given link exists.
func (s *PgStore) LinkExists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE link = $1)`, link,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query link: %w", err)
	}
	return exists, nil
}

// RelevantAppointments returns appointments related to the subject.
func (s *PgStore) RelevantAppointments(ctx context.Context, subjectID string, pinLinks []string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT a.id, a.link, a.title, a.description, a.location,
		       a.date, a.deadline, a.max_enrollments, a.driver_addition, a.hidden,
		       a.creator_id, a.created_at
		FROM appointments a
		LEFT JOIN appointment_administrators adm ON adm.appointment_id = a.id
		LEFT JOIN appointment_pinners pin ON pin.appointment_id = a.id
		LEFT JOIN enrollments e ON e.appointment_id = a.id
		WHERE a.creator_id = $1
		   OR adm.subject_id = $1
		   OR pin.subject_id = $1
		   OR e.creator_id = $1
		   OR a.link = ANY($2)
		ORDER BY a.created_at DESC`,
		subjectID, pinLinks,
	)
	if err != nil {
		return nil, fmt.Errorf("query relevant appointments: %w", err)
	}
	defer rows.Close()

	var result []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID, &appt.Link, &appt.Title, &appt.Description, &appt.Location,
			&appt.Date, &appt.Deadline, &appt.MaxEnrollments, &appt.DriverAddition, &appt.Hidden,
			&appt.CreatorID, &appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		result = append(result, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := s.loadRelations(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CreateEnrollment adds an enrollment to an appointment.
func (s *PgStore) CreateEnrollment(ctx context.Context, appointmentID string, enr model.Enrollment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEnrollment(ctx, tx, appointmentID, enr); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateEnrollment persists an updated enrollment by replacing the stored
// row and its addition selections.
func (s *PgStore) UpdateEnrollment(ctx context.Context, appointmentID string, enr model.Enrollment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM enrollments WHERE id = $1 AND appointment_id = $2`,
		enr.ID, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("enrollment %q not found", enr.ID),
		)
	}

	if err := insertEnrollment(ctx, tx, appointmentID, enr); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteEnrollment removes an enrollment from an appointment.
func (s *PgStore) DeleteEnrollment(ctx context.Context, appointmentID, enrollmentID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM enrollments WHERE id = $1 AND appointment_id = $2`,
		enrollmentID, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("enrollment %q not found", enrollmentID),
		)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func insertRelations(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
	for _, add := range appt.Additions {
		_, err := tx.Exec(ctx, `
			INSERT INTO additions (id, appointment_id, name, position)
			VALUES ($1, $2, $3, $4)`,
			add.ID, appt.ID, add.Name, add.Order,
		)
		if err != nil {
			return fmt.Errorf("insert addition: %w", err)
		}
	}
	for _, subjectID := range appt.AdministratorIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_administrators (appointment_id, subject_id)
			VALUES ($1, $2)`,
			appt.ID, subjectID,
		)
		if err != nil {
			return fmt.Errorf("insert administrator: %w", err)
		}
	}
	for _, subjectID := range appt.PinnerIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_pinners (appointment_id, subject_id)
			VALUES ($1, $2)`,
			appt.ID, subjectID,
		)
		if err != nil {
			return fmt.Errorf("insert pinner: %w", err)
		}
	}
	return nil
}

func insertEnrollment(ctx context.Context, tx pgx.Tx, appointmentID string, enr model.Enrollment) error {
	var driverService, driverSeats, passengerRequirement *int
	if enr.Driver != nil {
		driverService = &enr.Driver.Service
		driverSeats = &enr.Driver.Seats
	}
	if enr.Passenger != nil {
		passengerRequirement = &enr.Passenger.Requirement
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO enrollments (
			id, appointment_id, name, comment, creator_id,
			driver_service, driver_seats, passenger_requirement, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		enr.ID, appointmentID, enr.Name, enr.Comment, enr.CreatorID,
		driverService, driverSeats, passengerRequirement, enr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	for _, add := range enr.Additions {
		_, err := tx.Exec(ctx, `
			INSERT INTO enrollment_additions (enrollment_id, addition_id)
			VALUES ($1, $2)`,
			enr.ID, add.ID,
		)
		if err != nil {
			return fmt.Errorf("insert enrollment addition: %w", err)
		}
	}
	return nil
}

// loadRelations populates additions, administrators, pinners, and
// enrollments for an appointment.
func (s *PgStore) loadRelations(ctx context.Context, appt *model.Appointment) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, position FROM additions
		WHERE appointment_id = $1 ORDER BY position ASC`,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("query additions: %w", err)
	}
	defer rows.Close()
	additionsByID := make(map[string]model.Addition)
	for rows.Next() {
		var add model.Addition
		if err := rows.Scan(&add.ID, &add.Name, &add.Order); err != nil {
			return fmt.Errorf("scan addition: %w", err)
		}
		appt.Additions = append(appt.Additions, add)
		additionsByID[add.ID] = add
	}
	if err := rows.Err(); err != nil {
		return err
	}

	appt.AdministratorIDs, err = s.querySubjects(ctx, "appointment_administrators", appt.ID)
	if err != nil {
		return err
	}
	appt.PinnerIDs, err = s.querySubjects(ctx, "appointment_pinners", appt.ID)
	if err != nil {
		return err
	}

	return s.loadEnrollments(ctx, appt, additionsByID)
}

func (s *PgStore) querySubjects(ctx context.Context, table, appointmentID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT subject_id FROM %s WHERE appointment_id = $1 ORDER BY subject_id", table),
		appointmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		subjects = append(subjects, id)
	}
	return subjects, rows.Err()
}

func (s *PgStore) loadEnrollments(ctx context.Context, appt *model.Appointment, additionsByID map[string]model.Addition) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, comment, creator_id,
		       driver_service, driver_seats, passenger_requirement, created_at
		FROM enrollments
		WHERE appointment_id = $1
		ORDER BY created_at ASC`,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var enr model.Enrollment
		var driverService, driverSeats, passengerRequirement *int
		if err := rows.Scan(
			&enr.ID, &enr.Name, &enr.Comment, &enr.CreatorID,
			&driverService, &driverSeats, &passengerRequirement, &enr.CreatedAt,
		); err != nil {
			return fmt.Errorf("scan enrollment: %w", err)
		}
		if driverService != nil && driverSeats != nil {
			enr.Driver = &model.Driver{Service: *driverService, Seats: *driverSeats}
		}
		if passengerRequirement != nil {
			enr.Passenger = &model.Passenger{Requirement: *passengerRequirement}
		}
		appt.Enrollments = append(appt.Enrollments, enr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range appt.Enrollments {
		addRows, err := s.pool.Query(ctx, `
			SELECT addition_id FROM enrollment_additions WHERE enrollment_id = $1`,
			appt.Enrollments[i].ID,
		)
		if err != nil {
			return fmt.Errorf("query enrollment additions: %w", err)
		}
		var selected []model.Addition
		for addRows.Next() {
			var id string
			if err := addRows.Scan(&id); err != nil {
				addRows.Close()
				return fmt.Errorf("scan enrollment addition: %w", err)
			}
			if add, ok := additionsByID[id]; ok {
				selected = append(selected, add)
			}
		}
		addRows.Close()
		if err := addRows.Err(); err != nil {
			return err
		}
		sortAdditions(selected)
		appt.Enrollments[i].Additions = selected
	}
	return nil
}

func sortAdditions(adds []model.Addition) {
	sort.Slice(adds, func(i, j int) bool {
		return adds[i].Order < adds[j].Order
	})
}
