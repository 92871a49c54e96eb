package model

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginUser is the account summary the frontend keeps after login.
type LoginUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type LoginResponse struct {
	User  LoginUser `json:"user"`
	Token string    `json:"token"`
}

// RegisterRequest is a patient's self-registration. It creates the login
// account and the directory profile together.
type RegisterRequest struct {
	FirstName        string `json:"first_name" binding:"required,notblank,max=100"`
	LastName         string `json:"last_name" binding:"required,notblank,max=100"`
	Email            string `json:"email" binding:"required,email,max=255"`
	Password         string `json:"password" binding:"required,min=8,max=72"`
	DateOfBirth      string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender           string `json:"gender" binding:"max=32"`
	Address          string `json:"address"`
	Phone            string `json:"phone" binding:"max=50"`
	EmergencyContact string `json:"emergency_contact"`
	MedicalHistory   string `json:"medical_history"`
}
