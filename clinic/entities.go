// Package clinic defines the records served by the clinic services and the
// descriptors the console uses to reach them.
package clinic

// Record holds the fields every stored document carries.
type Record struct {
	ObjectID  string `json:"_id,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ID returns the document identifier. Grid rows are keyed by it.
func (r Record) ID() string { return r.ObjectID }

// Identifiable is implemented by every clinic record.
type Identifiable interface {
	ID() string
}

type Doctor struct {
	Record
	Username          string   `json:"username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Password          string   `json:"password,omitempty"`
	Contact           int64    `json:"contact,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	LanguagesSpoken   string   `json:"languagespoken,omitempty"`
	Address           string   `json:"address,omitempty"`
	SpecializationIDs []string `json:"specializationIds,omitempty"`
	QualificationIDs  []string `json:"qualificationIds,omitempty"`
	ExperienceYears   int      `json:"experienceYears,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	Availability      []string `json:"availability,omitempty"`
}

type Patient struct {
	Record
	Username       string   `json:"username,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	DOB            string   `json:"dob,omitempty"`
	City           string   `json:"city,omitempty"`
	MedicalHistory []string `json:"medical_history,omitempty"`
}

type Appointment struct {
	Record
	PatientID       string `json:"patientId,omitempty"`
	DoctorID        string `json:"doctorId,omitempty"`
	AppointmentTime string `json:"appointmentTime,omitempty"`
	Status          string `json:"status,omitempty"`
}

// Speciality, Qualification and Symptom are plain named catalogue entries.
type Speciality struct {
	Record
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type Qualification struct {
	Record
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type Symptom struct {
	Record
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

var (
	_ Identifiable = Doctor{}
	_ Identifiable = Patient{}
	_ Identifiable = Appointment{}
	_ Identifiable = Speciality{}
	_ Identifiable = Qualification{}
	_ Identifiable = Symptom{}
)
