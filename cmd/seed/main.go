package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"flightbook/internal/flights"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/database"
	"flightbook/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Flightbook Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"tickets",
		"ticket_transactions",
		"seat_reservations",
		"flight_seats",
		"flights",
		"users",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if _, err := s.SeedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if err := s.SeedFlights(); err != nil {
		return fmt.Errorf("failed to seed flights: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

// SeedUsers creates 1 admin and 2 regular users
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	// Hash password for all users (using "qwerty")
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
	}{
		{"admin", "Admin", "User", "admin@flightbook.test", users.RoleAdmin},
		{"user1", "Ada", "Lovelace", "ada@flightbook.test", users.RoleUser},
		{"user2", "Alan", "Turing", "alan@flightbook.test", users.RoleUser},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:        uuid.New(),
			FirstName: userData.firstName,
			LastName:  userData.lastName,
			Email:     userData.email,
			Password:  string(hashedPassword),
			Role:      userData.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedFlights creates a few departures, each with a full seat map and a
// capacity equal to its seat count.
func (s *Seeder) SeedFlights() error {
	fmt.Println("  ✈️ Seeding flights...")

	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	flightsData := []struct {
		number      string
		airline     string
		origin      string
		destination string
		departure   time.Time
		duration    time.Duration
		rows        int
		businessRow int // rows up to and including this one are business class
	}{
		{"FB101", "Flightbook Air", "SFO", "JFK", tomorrow.Add(8 * time.Hour), 5*time.Hour + 30*time.Minute, 20, 3},
		{"FB202", "Flightbook Air", "JFK", "LHR", tomorrow.Add(19 * time.Hour), 7 * time.Hour, 30, 5},
		{"FB303", "Flightbook Express", "LAX", "SEA", tomorrow.Add(48*time.Hour + 6*time.Hour), 2*time.Hour + 45*time.Minute, 12, 0},
	}

	for _, data := range flightsData {
		flight := flights.Flight{
			ID:           uuid.New(),
			FlightNumber: data.number,
			Airline:      data.airline,
			Origin:       data.origin,
			Destination:  data.destination,
			DepartureAt:  data.departure,
			ArrivalAt:    data.departure.Add(data.duration),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		seats := generateSeats(flight.ID, data.rows, data.businessRow)
		flight.Capacity = len(seats)

		if err := s.db.PostgreSQL.Create(&flight).Error; err != nil {
			return fmt.Errorf("failed to create flight %s: %w", data.number, err)
		}
		if err := s.db.PostgreSQL.CreateInBatches(&seats, 100).Error; err != nil {
			return fmt.Errorf("failed to create seats for flight %s: %w", data.number, err)
		}

		fmt.Printf("    ✅ Created flight: %s %s→%s (%d seats)\n", flight.FlightNumber, flight.Origin, flight.Destination, len(seats))
	}

	return nil
}

// generateSeats lays out six seats per row, A through F.
func generateSeats(flightID uuid.UUID, rows, businessRow int) []flights.Seat {
	const columns = "ABCDEF"

	seats := make([]flights.Seat, 0, rows*len(columns))
	now := time.Now()
	for row := 1; row <= rows; row++ {
		class := flights.ClassEconomy
		price := 149.0
		if row <= businessRow {
			class = flights.ClassBusiness
			price = 499.0
		}

		for _, column := range columns {
			seats = append(seats, flights.Seat{
				ID:        uuid.New(),
				FlightID:  flightID,
				Label:     fmt.Sprintf("%d%c", row, column),
				Class:     class,
				Price:     price,
				Status:    flights.SeatFree,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return seats
}
