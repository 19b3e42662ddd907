package grid

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-clinic-console/clinic"
)

const maxCell = 32

func DoctorColumns() []Column[clinic.Doctor] {
	return []Column[clinic.Doctor]{
		{Header: "Name", Value: func(d clinic.Doctor) string { return d.Username }},
		{Header: "Email", Value: func(d clinic.Doctor) string { return d.Email }},
		{Header: "Specializations", Value: func(d clinic.Doctor) string { return list(d.SpecializationIDs) }},
		{Header: "Qualifications", Value: func(d clinic.Doctor) string { return list(d.QualificationIDs) }},
		{Header: "Experience", Value: func(d clinic.Doctor) string { return strconv.Itoa(d.ExperienceYears) }},
		{Header: "Bio", Value: func(d clinic.Doctor) string { return truncate(d.Bio) }},
		{Header: "Availability", Value: func(d clinic.Doctor) string { return list(d.Availability) }},
		{Header: "Created", Value: func(d clinic.Doctor) string { return date(d.CreatedAt) }},
	}
}

func PatientColumns() []Column[clinic.Patient] {
	return []Column[clinic.Patient]{
		{Header: "Name", Value: func(p clinic.Patient) string { return p.Username }},
		{Header: "Email", Value: func(p clinic.Patient) string { return p.Email }},
		{Header: "Phone", Value: func(p clinic.Patient) string { return p.Phone }},
		{Header: "City", Value: func(p clinic.Patient) string { return p.City }},
		{Header: "Medical History", Value: func(p clinic.Patient) string { return list(p.MedicalHistory) }},
		{Header: "Created", Value: func(p clinic.Patient) string { return date(p.CreatedAt) }},
	}
}

func AppointmentColumns() []Column[clinic.Appointment] {
	return []Column[clinic.Appointment]{
		{Header: "Patient", Value: func(a clinic.Appointment) string { return a.PatientID }},
		{Header: "Appointment Time", Value: func(a clinic.Appointment) string {
			if a.AppointmentTime != "" {
				return dateTime(a.AppointmentTime)
			}
			return dateTime(a.CreatedAt)
		}},
		{Header: "Status", Value: func(a clinic.Appointment) string { return a.Status }},
	}
}

func SpecialityColumns() []Column[clinic.Speciality] {
	return []Column[clinic.Speciality]{
		{Header: "Speciality Name", Value: func(s clinic.Speciality) string { return s.Name }},
		{Header: "Description", Value: func(s clinic.Speciality) string { return truncate(s.Description) }},
	}
}

func QualificationColumns() []Column[clinic.Qualification] {
	return []Column[clinic.Qualification]{
		{Header: "Qualification Name", Value: func(q clinic.Qualification) string { return q.Name }},
		{Header: "Description", Value: func(q clinic.Qualification) string { return truncate(q.Description) }},
	}
}

func SymptomColumns() []Column[clinic.Symptom] {
	return []Column[clinic.Symptom]{
		{Header: "Symptom Name", Value: func(s clinic.Symptom) string { return s.Name }},
		{Header: "Description", Value: func(s clinic.Symptom) string { return truncate(s.Description) }},
		{Header: "Created", Value: func(s clinic.Symptom) string { return date(s.CreatedAt) }},
		{Header: "Updated", Value: func(s clinic.Symptom) string { return date(s.UpdatedAt) }},
	}
}

func list(items []string) string {
	return truncate(strings.Join(items, ", "))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-3]) + "..."
}

// date shortens an ISO timestamp to its day; other values pass through.
func date(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return s
}

func dateTime(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return s
}
