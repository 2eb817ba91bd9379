package models

// Profile holds the optional personal and professional details of a member.
type Profile struct {
	Pseudo            string `json:"pseudo"`
	Name              string `json:"name"`
	Surname           string `json:"surname"`
	Description       string `json:"description"`
	Qualities         string `json:"qualities"`
	Defects           string `json:"defects"`
	ProfessionalEmail string `json:"professionalEmail"`
	Phone             string `json:"phone"`
	Availability      string `json:"availability"`
}
