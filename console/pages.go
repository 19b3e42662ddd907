package console

import (
	"context"
	"io"

	"github.com/goliatone/go-clinic-console/apiclient"
	"github.com/goliatone/go-clinic-console/clinic"
	"github.com/goliatone/go-clinic-console/grid"
	"github.com/goliatone/go-clinic-console/pagination"
)

// View is a page with its record type erased.
type View interface {
	Name() string
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
	State() pagination.State
	Paginate(ctx context.Context, page, size int) error
	Search(ctx context.Context, query string) pagination.State
	Render(w io.Writer) error
	SubmitJSON(ctx context.Context, raw []byte, modify bool) (*apiclient.Response, error)
	Close()
}

func Doctors(d Deps) (*Page[clinic.Doctor, clinic.Doctor], error) {
	return NewPage[clinic.Doctor, clinic.Doctor](d, clinic.Doctors, grid.DoctorColumns())
}

func Patients(d Deps) (*Page[clinic.Patient, clinic.Patient], error) {
	return NewPage[clinic.Patient, clinic.Patient](d, clinic.Patients, grid.PatientColumns())
}

func Appointments(d Deps) (*Page[clinic.Appointment, clinic.Appointment], error) {
	return NewPage[clinic.Appointment, clinic.Appointment](d, clinic.Appointments, grid.AppointmentColumns())
}

func Specialities(d Deps) (*Page[clinic.Speciality, clinic.Speciality], error) {
	return NewPage[clinic.Speciality, clinic.Speciality](d, clinic.Specialities, grid.SpecialityColumns())
}

func Qualifications(d Deps) (*Page[clinic.Qualification, clinic.Qualification], error) {
	return NewPage[clinic.Qualification, clinic.Qualification](d, clinic.Qualifications, grid.QualificationColumns())
}

func Symptoms(d Deps) (*Page[clinic.Symptom, clinic.Symptom], error) {
	return NewPage[clinic.Symptom, clinic.Symptom](d, clinic.Symptoms, grid.SymptomColumns())
}

// Pages holds one page per entity.
type Pages struct {
	Doctors        *Page[clinic.Doctor, clinic.Doctor]
	Patients       *Page[clinic.Patient, clinic.Patient]
	Appointments   *Page[clinic.Appointment, clinic.Appointment]
	Specialities   *Page[clinic.Speciality, clinic.Speciality]
	Qualifications *Page[clinic.Qualification, clinic.Qualification]
	Symptoms       *Page[clinic.Symptom, clinic.Symptom]
}

// NewPages builds every page. d.Store must not hold any entity slice yet.
func NewPages(d Deps) (*Pages, error) {
	var (
		ps  Pages
		err error
	)
	if ps.Doctors, err = Doctors(d); err != nil {
		return nil, err
	}
	if ps.Patients, err = Patients(d); err != nil {
		return nil, err
	}
	if ps.Appointments, err = Appointments(d); err != nil {
		return nil, err
	}
	if ps.Specialities, err = Specialities(d); err != nil {
		return nil, err
	}
	if ps.Qualifications, err = Qualifications(d); err != nil {
		return nil, err
	}
	if ps.Symptoms, err = Symptoms(d); err != nil {
		return nil, err
	}
	return &ps, nil
}

// All returns the pages sorted by entity name.
func (ps *Pages) All() []View {
	return []View{
		ps.Appointments,
		ps.Doctors,
		ps.Patients,
		ps.Qualifications,
		ps.Specialities,
		ps.Symptoms,
	}
}

// Lookup finds the page of an entity by singular or plural name.
func (ps *Pages) Lookup(name string) (View, bool) {
	e, ok := clinic.Lookup(name)
	if !ok {
		return nil, false
	}
	for _, v := range ps.All() {
		if v.Name() == e.Name {
			return v, true
		}
	}
	return nil, false
}

// Close closes every page.
func (ps *Pages) Close() {
	for _, v := range ps.All() {
		v.Close()
	}
}
