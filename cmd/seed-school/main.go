package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/database"
	"github.com/easygo/easygo-schools/internal/logger"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/service"
)

var firstNames = []string{
	"Yassine", "Salma", "Omar", "Imane", "Hamza", "Khadija", "Anas", "Meryem", "Ayoub", "Hiba",
	"Mehdi", "Zineb", "Adam", "Nour", "Ilyas", "Rania", "Othmane", "Aya", "Amine", "Chaimae",
}

var lastNames = []string{
	"El Amrani", "Benali", "Tazi", "Alaoui", "Bennani", "Chraibi", "Idrissi", "Berrada", "Fassi", "Ouazzani",
}

// seed-school creates a demo academic year, a class and its students so a
// fresh install has something to click through.
func main() {
	count := flag.Int("students", 30, "number of students to create")
	className := flag.String("class", "1AC-A", "class name")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	clock := service.SystemClock(cfg.Location())
	tx := repository.NewTxManager(pool)
	academicRepo := repository.NewAcademicRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	// Seeded guardians get no welcome mail; messages are only logged.
	notes := service.NewNotifications(notify.NewLogMailer(log), nil, clock, log)

	academics := service.NewAcademicService(academicRepo, tx)
	classes := service.NewClassService(classRepo, academicRepo)
	students := service.NewStudentService(repository.NewStudentRepository(pool), repository.NewGuardianRepository(pool),
		classRepo, tx, notes, clock, cfg.SchoolName)

	fmt.Println("=== Seeding school ===")

	year, err := academics.DefaultYear(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		start := academicYearStart(clock())
		year, err = academics.CreateYear(ctx, model.AcademicYearRequest{
			Name:      fmt.Sprintf("%d-%d", start.Year(), start.Year()+1),
			StartDate: model.DateOf(start),
			EndDate:   model.NewDate(start.Year()+1, time.June, 30),
			IsDefault: true,
		})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve the academic year")
	}
	fmt.Printf("Academic year: %s (ID %d)\n", year.Name, year.ID)

	class, err := findOrCreateClass(ctx, classes, year.ID, *className, *count)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve the class")
	}
	fmt.Printf("Class: %s (ID %d)\n", class.Name, class.ID)

	created := 0
	for i := 0; i < *count; i++ {
		gender := "M"
		if i%2 == 1 {
			gender = "F"
		}
		req := model.StudentRequest{
			MassarCode:    fmt.Sprintf("%04d%07d", year.StartDate.Year(), class.ID*1000+i+1),
			FirstName:     firstNames[i%len(firstNames)],
			LastName:      lastNames[i%len(lastNames)],
			Gender:        gender,
			DateOfBirth:   model.NewDate(year.StartDate.Year()-12, time.Month(i%12+1), i%28+1),
			SchoolClassID: &class.ID,
		}
		if _, err := students.Create(ctx, req); err != nil {
			if repository.IsDuplicate(err) {
				continue
			}
			fmt.Printf("Skipped %s %s: %v\n", req.FirstName, req.LastName, err)
			continue
		}
		created++
	}

	fmt.Printf("\nSeed completed: %d/%d students created.\n", created, *count)
}

// academicYearStart returns September 1st of the school year containing now.
func academicYearStart(now time.Time) time.Time {
	y := now.Year()
	if now.Month() < time.September {
		y--
	}
	return time.Date(y, time.September, 1, 0, 0, 0, 0, now.Location())
}

func findOrCreateClass(ctx context.Context, classes *service.ClassService, yearID int, name string, size int) (*model.SchoolClass, error) {
	list, err := classes.List(ctx, &yearID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == name {
			return &list[i], nil
		}
	}
	capacity := size
	if capacity < 35 {
		capacity = 35
	}
	return classes.Create(ctx, model.SchoolClassRequest{
		Name:           name,
		Level:          "1AC",
		AcademicYearID: yearID,
		Capacity:       capacity,
	})
}
