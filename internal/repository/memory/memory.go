// Package memory holds map-backed repositories with the same semantics as the
// postgres ones. Tests use them in place of a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// Store backs every repository with one mutex so Mutate calls serialize the
// same way row locks do.
type Store struct {
	mu           sync.Mutex
	nextID       int64
	appointments map[int64]model.Appointment
	doctors      map[int64]model.Doctor
	patients     map[int64]model.Patient
	users        map[int64]model.User

	// Fail, when set, is returned by every directory read. Directory reads
	// also fail with ctx.Err() once ctx is done, as the database driver does.
	Fail error
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[int64]model.Appointment),
		doctors:      make(map[int64]model.Doctor),
		patients:     make(map[int64]model.Patient),
		users:        make(map[int64]model.User),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// assign keeps a caller-chosen id so fixtures can pin ids.
func (s *Store) assign(id int64) int64 {
	if id <= 0 {
		return s.id()
	}
	if id > s.nextID {
		s.nextID = id
	}
	return id
}

func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository           { return doctorRepo{s} }
func (s *Store) Patients() repository.PatientRepository         { return patientRepo{s} }
func (s *Store) Users() repository.UserRepository               { return userRepo{s} }

// SetFailure swaps the directory failure under the store lock.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fail = err
}

// readErr is called with mu held.
func (s *Store) readErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Fail
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[apt.PatientID]; !ok {
		return fmt.Errorf("create appointment: %w (patient_id)", repository.ErrForeignKey)
	}
	if _, ok := r.s.doctors[apt.DoctorID]; !ok {
		return fmt.Errorf("create appointment: %w (doctor_id)", repository.ErrForeignKey)
	}

	apt.ID = r.s.id()
	apt.CreatedAt = time.Now().UTC()
	apt.UpdatedAt = apt.CreatedAt
	r.s.appointments[apt.ID] = *apt
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id int64) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &apt, nil
}

func (r appointmentRepo) Mutate(_ context.Context, id int64, fn repository.MutateFunc) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	action, err := fn(&apt)
	if err != nil {
		return nil, err
	}

	switch action {
	case repository.MutationSave:
		apt.UpdatedAt = time.Now().UTC()
		r.s.appointments[id] = apt
	case repository.MutationDelete:
		delete(r.s.appointments, id)
	case repository.MutationNone:
	default:
		return nil, fmt.Errorf("unknown mutation action %d", action)
	}
	return &apt, nil
}

func (r appointmentRepo) ListByPatient(_ context.Context, patientID int64) ([]*model.Appointment, error) {
	return r.list(func(a model.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r appointmentRepo) ListByDoctor(_ context.Context, doctorID int64) ([]*model.Appointment, error) {
	return r.list(func(a model.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r appointmentRepo) ListAll(_ context.Context) ([]*model.Appointment, error) {
	return r.list(func(model.Appointment) bool { return true }), nil
}

func (r appointmentRepo) list(match func(model.Appointment) bool) []*model.Appointment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		if match(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type doctorRepo struct{ s *Store }

func (r doctorRepo) Create(_ context.Context, d *model.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.doctors {
		if strings.EqualFold(existing.Email, d.Email) {
			return fmt.Errorf("create doctor: %w (email)", repository.ErrDuplicate)
		}
	}
	d.ID = r.s.assign(d.ID)
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	r.s.doctors[d.ID] = *d
	return nil
}

func (r doctorRepo) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r doctorRepo) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	for _, d := range r.s.doctors {
		if strings.EqualFold(d.Email, email) {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r doctorRepo) List(ctx context.Context) ([]*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	out := []*model.Doctor{}
	for _, d := range r.s.doctors {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.patients {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("create patient: %w (email)", repository.ErrDuplicate)
		}
	}
	p.ID = r.s.assign(p.ID)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.s.patients[p.ID] = *p
	return nil
}

func (r patientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r patientRepo) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	for _, p := range r.s.patients {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r patientRepo) List(ctx context.Context) ([]*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.readErr(ctx); err != nil {
		return nil, err
	}
	out := []*model.Patient{}
	for _, p := range r.s.patients {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w (email)", repository.ErrDuplicate)
		}
	}
	u.ID = r.s.assign(u.ID)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) CreatePatientAccount(_ context.Context, u *model.User, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w (email)", repository.ErrDuplicate)
		}
	}
	for _, existing := range r.s.patients {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("create patient: %w (email)", repository.ErrDuplicate)
		}
	}

	now := time.Now().UTC()
	u.ID = r.s.id()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u

	p.ID = r.s.id()
	p.UserID = &u.ID
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.patients[p.ID] = *p
	return nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}
