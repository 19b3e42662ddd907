package clinic

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// Service names, as used to pick a service base URL.
const (
	ServiceAppointment   = "appointment"
	ServiceSpeciality    = "speciality"
	ServiceSymptom       = "symptom"
	ServiceQualification = "qualification"
	ServiceDoctor        = "doctor"
	ServicePatient       = "patient"
)

// DefaultPageSize is the initial page size of every view.
const DefaultPageSize = 10

// Entity describes where an entity lives and how its grid pages.
type Entity struct {
	// Name is the singular entity name, also used in store action types.
	Name string
	// Service selects the base URL for every request of this entity.
	Service    string
	ListPath   string
	CreatePath string
	UpdatePath string
	// GetPath fetches one record by id; empty when the service has no such
	// route.
	GetPath    string
	// PageSize is the initial page size; it is always one of PageSizeOptions.
	PageSize        int
	PageSizeOptions []int
}

// Plural returns the plural entity name, e.g. "qualifications".
func (e Entity) Plural() string {
	return inflection.Plural(e.Name)
}

// RecordPath returns the path of the record with id and false when the
// entity cannot be fetched by id.
func (e Entity) RecordPath(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if e.GetPath == "" || id == "" {
		return "", false
	}
	return strings.TrimSuffix(e.GetPath, "/") + "/" + url.PathEscape(id), true
}

// EnvVar names the environment variable holding the service base URL.
func (e Entity) EnvVar() string {
	return strings.ToUpper(e.Service) + "_URL"
}

var (
	Doctors = Entity{
		Name:            "doctor",
		Service:         ServiceDoctor,
		ListPath:        "get-doctors",
		CreatePath:      "create-doctor",
		UpdatePath:      "update-doctor",
		GetPath:         "get-doctor-by-id",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{10, 15, 20},
	}
	Patients = Entity{
		Name:            "patient",
		Service:         ServicePatient,
		ListPath:        "get-patients",
		CreatePath:      "create-patient",
		UpdatePath:      "update-patient",
		GetPath:         "get-patient-by-id",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{5, 10, 20},
	}
	Appointments = Entity{
		Name:            "appointment",
		Service:         ServiceAppointment,
		ListPath:        "get-appointments",
		CreatePath:      "create-appointment",
		UpdatePath:      "update-appointment",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{5, 10, 20},
	}
	Specialities = Entity{
		Name:            "speciality",
		Service:         ServiceSpeciality,
		ListPath:        "speciality/get-speciality",
		CreatePath:      "/speciality/create-speciality",
		UpdatePath:      "/speciality/update-speciality",
		GetPath:         "speciality/get-speciality",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{10, 15, 20},
	}
	Qualifications = Entity{
		Name:            "qualification",
		Service:         ServiceQualification,
		ListPath:        "get-qualifications",
		CreatePath:      "qualification/create-qualification",
		UpdatePath:      "qualification/update-qualification",
		GetPath:         "qualification/get-qualification",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{10, 15, 20},
	}
	Symptoms = Entity{
		Name:            "symptom",
		Service:         ServiceSymptom,
		ListPath:        "/symptoms/get-symptoms",
		CreatePath:      "/symptoms/create-symptoms",
		UpdatePath:      "/symptoms/update-symptoms",
		PageSize:        DefaultPageSize,
		PageSizeOptions: []int{5, 10, 20},
	}
)

// Entities returns every known entity ordered by name.
func Entities() []Entity {
	all := []Entity{Appointments, Doctors, Patients, Qualifications, Specialities, Symptoms}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Lookup finds an entity by singular or plural name, ignoring case.
func Lookup(name string) (Entity, bool) {
	singular := inflection.Singular(strings.ToLower(strings.TrimSpace(name)))
	for _, e := range Entities() {
		if e.Name == singular {
			return e, true
		}
	}
	return Entity{}, false
}

// Services lists the distinct service names.
func Services() []string {
	var out []string
	for _, e := range Entities() {
		out = append(out, e.Service)
	}
	return out
}
