// Command seed loads a small demo dataset: two airports, one airline, one
// aircraft and the 6E123 DEL-BOM flight, plus a demo customer account.
package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/flightbooker/backend/internal/config"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/models"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	catalogRepo := database.NewCatalogRepository(db)
	flightRepo := database.NewFlightRepository(db.DB)
	userRepo := database.NewUserRepository(db)

	airports := []models.CreateAirportRequest{
		{Code: "DEL", Name: "Indira Gandhi International Airport", City: "Delhi", Country: "India"},
		{Code: "BOM", Name: "Chhatrapati Shivaji Maharaj International Airport", City: "Mumbai", Country: "India"},
	}
	for i := range airports {
		if err := seedAirport(catalogRepo, &airports[i]); err != nil {
			logger.Fatalf("Failed to seed airport %s: %v", airports[i].Code, err)
		}
	}
	logger.Info("Airports seeded")

	airline := models.CreateAirlineRequest{Code: "6E", Name: "IndiGo"}
	existing, err := catalogRepo.GetAirlineByCode(airline.Code)
	if err != nil {
		logger.Fatalf("Failed to check airline: %v", err)
	}
	if existing == nil {
		if _, err := catalogRepo.CreateAirline(&airline); err != nil {
			logger.Fatalf("Failed to seed airline: %v", err)
		}
	}
	logger.Info("Airline seeded")

	aircraft, err := catalogRepo.CreateAircraft(&models.CreateAircraftRequest{
		Registration: "VT-IFB",
		Model:        "Airbus A321neo",
		ClassDistribution: models.ClassDistribution{
			models.ClassFirst:       8,
			models.ClassBusiness:    16,
			models.ClassEconomyFlex: 36,
			models.ClassEconomy:     120,
		},
	})
	if err != nil {
		logger.Fatalf("Failed to seed aircraft: %v", err)
	}
	logger.WithField("aircraft_id", aircraft.ID).Info("Aircraft seeded")

	departure := time.Now().Add(14 * 24 * time.Hour).Truncate(time.Hour)
	flight, err := flightRepo.CreateFlight(&models.CreateFlightRequest{
		FlightNumber:    "6E123",
		AirlineCode:     "6E",
		OriginCode:      "DEL",
		DestinationCode: "BOM",
		AircraftID:      aircraft.ID,
		DepartureTime:   departure,
		ArrivalTime:     departure.Add(2*time.Hour + 15*time.Minute),
		BaseFare: models.FareMap{
			models.ClassEconomy:     5000,
			models.ClassEconomyFlex: 6500,
			models.ClassBusiness:    14000,
			models.ClassFirst:       22000,
		},
		DemandIndex: 20,
	}, aircraft)
	if err != nil {
		logger.Fatalf("Failed to seed flight: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"flight_id":     flight.ID,
		"flight_number": flight.FlightNumber,
		"departure":     flight.DepartureTime,
	}).Info("Flight seeded")

	if err := seedUser(userRepo, "demo@flightbooker.local", "demo-password", "Demo Customer", models.RoleCustomer); err != nil {
		logger.Fatalf("Failed to seed demo user: %v", err)
	}
	if err := seedUser(userRepo, "admin@flightbooker.local", "admin-password", "Admin", models.RoleAdmin); err != nil {
		logger.Fatalf("Failed to seed admin user: %v", err)
	}
	logger.Info("Users seeded")

	logger.Info("Seed complete")
}

func seedAirport(repo *database.CatalogRepository, req *models.CreateAirportRequest) error {
	existing, err := repo.GetAirportByCode(req.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = repo.CreateAirport(req)
	return err
}

func seedUser(repo *database.UserRepository, email, password, name string, role models.Role) error {
	existing, err := repo.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = repo.CreateUser(email, string(hash), name, role)
	return err
}
