package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/database"
	"github.com/easygo/easygo-schools/internal/logger"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/service"
	"golang.org/x/term"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	adminRepo := repository.NewAdminRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	// No Redis here: the hasher is all this command needs from AuthService.
	authService := service.NewAuthService(cfg, nil, adminRepo, roleRepo)
	adminService := service.NewAdminService(adminRepo, roleRepo, authService)

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== Create Staff User ===")

	req := model.CreateAdminRequest{
		Name:   prompt(reader, "Name: "),
		Email:  prompt(reader, "Email: "),
		RoleID: model.SuperAdminRoleID,
	}
	if req.Name == "" || req.Email == "" {
		fmt.Println("Error: name and email are required")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	req.Password = string(raw)
	if len(req.Password) < 8 {
		fmt.Println("Error: password must be at least 8 characters")
		os.Exit(1)
	}

	if s := prompt(reader, fmt.Sprintf("Role ID (default %d): ", model.SuperAdminRoleID)); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id <= 0 {
			fmt.Println("Error: role ID must be a positive number")
			os.Exit(1)
		}
		req.RoleID = id
	}

	admin, err := adminService.Create(ctx, req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			fmt.Printf("Error: %s\n", verr.Error())
		case repository.IsDuplicate(err):
			fmt.Printf("Error: %s is already registered\n", req.Email)
		default:
			log.Fatal().Err(err).Msg("Failed to create staff user")
		}
		os.Exit(1)
	}

	fmt.Printf("\nCreated %s (%s) with ID %d\n", admin.Name, admin.Email, admin.ID)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
