package config

import (
	"log"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedTemplates(); err != nil {
		log.Printf("⚠️ Template seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@declarehub.local",
		Password: hashedPassword,
		Role:     "ADMIN",
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Println("✅ Default admin user created (change the password!)")
	return nil
}

// seedTemplates seeds the standard declaration templates
func (s *Seeder) seedTemplates() error {
	var count int64
	s.db.Model(&models.DeclarationTemplate{}).Count(&count)
	if count > 0 {
		return nil // Templates already exist
	}

	templates := []models.DeclarationTemplate{
		{
			Code:        "COI",
			Name:        "Conflict of Interest Declaration",
			Description: "Annual declaration of outside interests and directorships",
			FormSchema:  `{"sections":[{"title":"Outside Interests","fields":[{"key":"has_interests","type":"bool"},{"key":"details","type":"table"}]},{"title":"Directorships","fields":[{"key":"companies","type":"table"}]}]}`,
			IsActive:    true,
		},
		{
			Code:        "GIFTS",
			Name:        "Gifts and Hospitality Declaration",
			Description: "Declaration of gifts and hospitality received",
			FormSchema:  `{"sections":[{"title":"Gifts Received","fields":[{"key":"gifts","type":"table"}]}]}`,
			IsActive:    true,
		},
	}

	for i := range templates {
		if err := s.db.Create(&templates[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d declaration templates", len(templates))
	return nil
}
