package model

// SectionID identifies a group of related profile fields
type SectionID string

const (
	SectionPersonal     SectionID = "personal"
	SectionFamily       SectionID = "family"
	SectionProfessional SectionID = "professional"
	SectionContact      SectionID = "contact"
	SectionPreferences  SectionID = "preferences"
	SectionAdditional   SectionID = "additional"
)

// Field keys of a profile record
const (
	FieldName             = "name"
	FieldDateOfBirth      = "dateOfBirth"
	FieldTimeOfBirth      = "timeOfBirth"
	FieldPlaceOfBirth     = "placeOfBirth"
	FieldHeight           = "height"
	FieldWeight           = "weight"
	FieldComplexion       = "complexion"
	FieldBloodGroup       = "bloodGroup"
	FieldFatherName       = "fatherName"
	FieldFatherOccupation = "fatherOccupation"
	FieldMotherName       = "motherName"
	FieldMotherOccupation = "motherOccupation"
	FieldSiblings         = "siblings"
	FieldFamilyType       = "familyType"
	FieldEducation        = "education"
	FieldOccupation       = "occupation"
	FieldIncome           = "income"
	FieldWorkLocation     = "workLocation"
	FieldAddress          = "address"
	FieldPhone            = "phone"
	FieldEmail            = "email"
	FieldPartnerAge       = "partnerAge"
	FieldPartnerHeight    = "partnerHeight"
	FieldPartnerEducation = "partnerEducation"
	FieldPartnerOccup     = "partnerOccupation"
	FieldHobbies          = "hobbies"
	FieldAdditionalInfo   = "additionalInfo"

	// FieldProfileImage holds embeddable image data, not text
	FieldProfileImage = "profileImage"
)

// FieldDef describes how a field is labelled and where it is presented
type FieldDef struct {
	Key          string    `json:"key"`
	Section      SectionID `json:"section"`
	Label        string    `json:"label"`         // form label
	PreviewLabel string    `json:"preview_label"` // label in the rendered document
	FullWidth    bool      `json:"full_width,omitempty"`
}

// SectionDef describes a section of the rendered document
type SectionDef struct {
	ID        SectionID `json:"id"`
	Title     string    `json:"title"`
	Mandatory bool      `json:"mandatory"`
}

// Sections lists the document sections in presentation order.
// Personal and Contact are rendered even when all of their fields are empty.
var Sections = []SectionDef{
	{ID: SectionPersonal, Title: "PERSONAL DETAILS", Mandatory: true},
	{ID: SectionFamily, Title: "FAMILY DETAILS"},
	{ID: SectionProfessional, Title: "EDUCATION & PROFESSION"},
	{ID: SectionContact, Title: "CONTACT INFORMATION", Mandatory: true},
	{ID: SectionPreferences, Title: "PARTNER PREFERENCES"},
	{ID: SectionAdditional, Title: "ADDITIONAL INFORMATION"},
}

// Fields is the field catalog. Order within a section is presentation order.
var Fields = []FieldDef{
	{Key: FieldName, Section: SectionPersonal, Label: "Full Name", PreviewLabel: "Name"},
	{Key: FieldDateOfBirth, Section: SectionPersonal, Label: "Date of Birth", PreviewLabel: "Date Of Birth"},
	{Key: FieldPlaceOfBirth, Section: SectionPersonal, Label: "Place of Birth", PreviewLabel: "Place Of Birth"},
	{Key: FieldTimeOfBirth, Section: SectionPersonal, Label: "Time of Birth", PreviewLabel: "Time Of Birth"},
	{Key: FieldHeight, Section: SectionPersonal, Label: "Height", PreviewLabel: "Height"},
	{Key: FieldWeight, Section: SectionPersonal, Label: "Weight", PreviewLabel: "Weight"},
	{Key: FieldComplexion, Section: SectionPersonal, Label: "Complexion", PreviewLabel: "Complexion"},
	{Key: FieldBloodGroup, Section: SectionPersonal, Label: "Blood Group", PreviewLabel: "Blood Group"},

	{Key: FieldFatherName, Section: SectionFamily, Label: "Father's Name", PreviewLabel: "Father's Name"},
	{Key: FieldFatherOccupation, Section: SectionFamily, Label: "Father's Occupation",
		PreviewLabel: "Father's Occupation"},
	{Key: FieldMotherName, Section: SectionFamily, Label: "Mother's Name", PreviewLabel: "Mother's Name"},
	{Key: FieldMotherOccupation, Section: SectionFamily, Label: "Mother's Occupation",
		PreviewLabel: "Mother's Occupation"},
	{Key: FieldSiblings, Section: SectionFamily, Label: "Siblings", PreviewLabel: "Siblings"},
	{Key: FieldFamilyType, Section: SectionFamily, Label: "Family Type", PreviewLabel: "Family Type"},

	{Key: FieldEducation, Section: SectionProfessional, Label: "Education", PreviewLabel: "Education"},
	{Key: FieldOccupation, Section: SectionProfessional, Label: "Occupation", PreviewLabel: "Occupation"},
	{Key: FieldIncome, Section: SectionProfessional, Label: "Annual Income", PreviewLabel: "Annual Income"},
	{Key: FieldWorkLocation, Section: SectionProfessional, Label: "Work Location", PreviewLabel: "Work Location"},

	{Key: FieldAddress, Section: SectionContact, Label: "Address", PreviewLabel: "Address", FullWidth: true},
	{Key: FieldPhone, Section: SectionContact, Label: "Phone Number", PreviewLabel: "Phone"},
	{Key: FieldEmail, Section: SectionContact, Label: "Email", PreviewLabel: "Email"},

	{Key: FieldPartnerAge, Section: SectionPreferences, Label: "Preferred Age Range", PreviewLabel: "Preferred Age"},
	{Key: FieldPartnerHeight, Section: SectionPreferences, Label: "Preferred Height",
		PreviewLabel: "Preferred Height"},
	{Key: FieldPartnerEducation, Section: SectionPreferences, Label: "Preferred Education",
		PreviewLabel: "Preferred Education"},
	{Key: FieldPartnerOccup, Section: SectionPreferences, Label: "Preferred Occupation",
		PreviewLabel: "Preferred Occupation"},

	{Key: FieldHobbies, Section: SectionAdditional, Label: "Hobbies & Interests",
		PreviewLabel: "Hobbies & Interests", FullWidth: true},
	{Key: FieldAdditionalInfo, Section: SectionAdditional, Label: "Additional Information",
		PreviewLabel: "Additional Information", FullWidth: true},
}

var fieldIndex = func() map[string]FieldDef {
	idx := make(map[string]FieldDef, len(Fields))
	for _, f := range Fields {
		idx[f.Key] = f
	}
	return idx
}()

// LookupField returns the definition of a text field
func LookupField(key string) (FieldDef, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// FieldsIn returns the fields of a section in presentation order
func FieldsIn(section SectionID) []FieldDef {
	var out []FieldDef
	for _, f := range Fields {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}

// FieldKeys returns every text field key in catalog order
func FieldKeys() []string {
	keys := make([]string, len(Fields))
	for i, f := range Fields {
		keys[i] = f.Key
	}
	return keys
}
