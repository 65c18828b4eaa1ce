package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/database"
	"github.com/easygo/easygo-schools/internal/handler"
	"github.com/easygo/easygo-schools/internal/logger"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/router"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/easygo/easygo-schools/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("school", cfg.SchoolName).
		Str("mail_provider", cfg.MailProvider).
		Msg("Starting EasyGo Schools")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	clock := service.SystemClock(cfg.Location())
	tx := repository.NewTxManager(pool)
	cache := repository.NewCache(rdb)

	// ─── Initialize Repositories ───────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	academicRepo := repository.NewAcademicRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	guardianRepo := repository.NewGuardianRepository(pool)
	transferRepo := repository.NewTransferRepository(pool)
	consentRepo := repository.NewConsentRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	gradeRepo := repository.NewGradeRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	attendanceFeed := repository.NewAttendanceFeed(rdb)
	feeBillRepo := repository.NewFeeBillRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	budgetRepo := repository.NewBudgetRepository(pool)
	expenseRepo := repository.NewExpenseRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	hrAttendanceRepo := repository.NewHRAttendanceRepository(pool)
	salarySlipRepo := repository.NewSalarySlipRepository(pool)
	stockRepo := repository.NewStockRepository(pool)
	communicationRepo := repository.NewCommunicationRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	// ─── Mail ──────────────────────────────────────────────────────────
	// Services hand mail to the Redis outbox when queued; the mail worker
	// delivers it through the real mailer.
	mailer := newMailer(cfg, log)
	var notifier notify.Notifier = mailer
	if cfg.MailQueued {
		notifier = notify.NewOutbox(rdb)
	}
	notes := service.NewNotifications(notifier, communicationRepo, clock, log)
	approvers := service.NewApprovers(adminRepo, cfg.ApproverEmails)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, adminRepo, roleRepo)
	adminService := service.NewAdminService(adminRepo, roleRepo, authService)
	adminRoleService := service.NewAdminRoleService(roleRepo, tx)
	settingService := service.NewSettingService(settingRepo, tx, cache, log)
	mediaService := service.NewMediaService(cfg.UploadDir, cfg.MaxUploadBytes)

	academicService := service.NewAcademicService(academicRepo, tx)
	classService := service.NewClassService(classRepo, academicRepo)
	scheduleService := service.NewScheduleService(scheduleRepo, classRepo, academicRepo, tx)
	studentService := service.NewStudentService(studentRepo, guardianRepo, classRepo, tx, notes, clock, cfg.SchoolName)
	transferService := service.NewTransferService(transferRepo, studentRepo, classRepo, approvers, tx, notes, clock)
	consentService := service.NewConsentService(consentRepo, studentRepo, guardianRepo, notes, clock)
	examService := service.NewExamService(examRepo, classRepo, studentRepo, notes, clock)
	gradeService := service.NewGradeService(gradeRepo, examRepo, studentRepo, notes, clock)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, attendanceFeed, tx, notes, clock, log)

	ledgerService := service.NewLedgerService(accountRepo, ledgerRepo, tx, clock, cfg.Currency)
	feeBillService := service.NewFeeBillService(feeBillRepo, studentRepo, ledgerService, tx, notes, clock, cfg.Currency, cfg.PaymentTermsDays)
	paymentService := service.NewPaymentService(paymentRepo, feeBillRepo, studentRepo, ledgerService, tx, notes, clock, cfg.Currency, cfg.SchoolName)
	budgetService := service.NewBudgetService(budgetRepo, approvers, tx, notes, clock, cfg.BudgetManager, cfg.EducationManager, cfg.HighValueThreshold, log)
	expenseService := service.NewExpenseService(expenseRepo, budgetService, ledgerService, adminRepo, approvers, tx, notes, clock)

	employeeService := service.NewEmployeeService(employeeRepo, clock)
	hrAttendanceService := service.NewHRAttendanceService(hrAttendanceRepo, employeeRepo, tx, clock)
	salarySlipService := service.NewSalarySlipService(salarySlipRepo, employeeRepo, hrAttendanceRepo, ledgerService, tx, notes, clock, cfg.Currency)
	stockService := service.NewStockService(stockRepo, tx, clock)
	communicationService := service.NewCommunicationService(communicationRepo, notifier, clock, cfg.MaxCommRetries)

	dashboardService := service.NewDashboardService(dashboardRepo, cache, clock, log)
	reportService := service.NewReportService(service.ReportSources{
		Fees:       reportRepo,
		Attendance: attendanceRepo,
		Ledger:     ledgerRepo,
		Budgets:    budgetRepo,
		Stock:      stockRepo,
	}, cache, cfg.ReportCacheTTL, clock, log)
	reminderService := service.NewReminderService(service.ReminderSources{
		Classes:    classRepo,
		Attendance: attendanceRepo,
		Fees:       feeBillRepo,
		Stock:      stockRepo,
		Budgets:    budgetRepo,
		Employees:  employeeRepo,
		Slips:      salarySlipRepo,
	}, approvers, service.ReminderContacts{
		Inventory: cfg.InventoryManager,
		Education: cfg.EducationManager,
		Budget:    cfg.BudgetManager,
	}, notes, clock)

	// ─── Scheduled Jobs ────────────────────────────────────────────────
	scheduler := worker.NewScheduler(cfg.Location(), worker.NewRedisJobLock(rdb), log)
	daily, weekly, monthly := worker.SchoolJobs(reminderService, feeBillService, consentService, log)
	if err := scheduler.Schedule(cfg.DailyJobSpec, daily); err != nil {
		log.Fatal().Err(err).Msg("Invalid daily job schedule")
	}
	if err := scheduler.Schedule(cfg.WeeklyJobSpec, weekly); err != nil {
		log.Fatal().Err(err).Msg("Invalid weekly job schedule")
	}
	if err := scheduler.Schedule(cfg.MonthlyJobSpec, monthly); err != nil {
		log.Fatal().Err(err).Msg("Invalid monthly job schedule")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, log),
		Admin:         handler.NewAdminHandler(adminService, adminRoleService, log),
		Student:       handler.NewStudentHandler(studentService, log),
		Transfer:      handler.NewTransferHandler(transferService, consentService, log),
		Class:         handler.NewClassHandler(academicService, classService, scheduleService, log),
		Exam:          handler.NewExamHandler(examService, gradeService, log),
		Attendance:    handler.NewAttendanceHandler(attendanceService, log),
		Fee:           handler.NewFeeHandler(feeBillService, paymentService, log),
		Ledger:        handler.NewLedgerHandler(ledgerService, log),
		Budget:        handler.NewBudgetHandler(budgetService, expenseService, log),
		HR:            handler.NewHRHandler(employeeService, hrAttendanceService, salarySlipService, log),
		Stock:         handler.NewStockHandler(stockService, log),
		Communication: handler.NewCommunicationHandler(communicationService, log),
		Setting:       handler.NewSettingHandler(settingService, mediaService, log),
		Dashboard:     handler.NewDashboardHandler(dashboardService, log),
		Report:        handler.NewReportHandler(reportService, scheduler, clock, log),
		System:        handler.NewSystemHandler(rdb, database.NewChecker(pool, rdb), log),
		WS:            handler.NewWSHandler(attendanceFeed, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := make(chan struct{})
	if cfg.MailQueued {
		mailWorker := worker.NewMailWorker(rdb, mailer, cfg.MaxMailRetries, log)
		go func() {
			mailWorker.Start(workerCtx)
			close(workersDone)
		}()
	} else {
		close(workersDone)
	}
	scheduler.Start()

	if n, err := adminRoleService.SyncSuperAdmin(ctx); err != nil {
		log.Warn().Err(err).Msg("Super admin permission sync failed")
	} else if n > 0 {
		log.Info().Int("added", n).Msg("Super admin permissions synced")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, rdb, handlers, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// 1. Stop accepting new HTTP requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop firing jobs and wait for running ones.
	scheduler.Stop(shutdownCtx)

	// 3. Let the mail worker flush what it holds.
	workerCancel()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Mail worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// newMailer returns the mailer that actually delivers messages.
func newMailer(cfg *config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.MailProvider == "sendgrid" && cfg.SendGridAPIKey != "" {
		return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail, cfg.SchoolName, log)
	}
	if cfg.MailProvider == "sendgrid" {
		log.Warn().Msg("SENDGRID_API_KEY is empty, mail is only logged")
	}
	return notify.NewLogMailer(log)
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
