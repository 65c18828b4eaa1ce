package router

import (
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/handler"
	"github.com/easygo/easygo-schools/internal/logger"
	"github.com/easygo/easygo-schools/internal/middleware"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	Admin         *handler.AdminHandler
	Student       *handler.StudentHandler
	Transfer      *handler.TransferHandler
	Class         *handler.ClassHandler
	Exam          *handler.ExamHandler
	Attendance    *handler.AttendanceHandler
	Fee           *handler.FeeHandler
	Ledger        *handler.LedgerHandler
	Budget        *handler.BudgetHandler
	HR            *handler.HRHandler
	Stock         *handler.StockHandler
	Communication *handler.CommunicationHandler
	Setting       *handler.SettingHandler
	Dashboard     *handler.DashboardHandler
	Report        *handler.ReportHandler
	System        *handler.SystemHandler
	WS            *handler.WSHandler
}

func perm(p ...model.Permission) gin.HandlerFunc {
	return middleware.RequirePermission(p...)
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	rdb *redis.Client,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restricted to AllowedOrigins when set, open otherwise.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.AccessLog(log))
	router.Use(middleware.Compress(cfg.CompressQuality, 0))

	// Uploaded logos are served with a one year cache.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", handlers.System.Health)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/settings", handlers.Setting.GetPublicSettings)
	}

	// ─── 1. Auth Group (Rate Limited) ──────────────────────────────────
	authLimiter := middleware.NewRateLimiter(rdb, "auth", cfg.AuthRateLimit, time.Minute, log)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.AdminLogin)
		auth.GET("/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService), perm(model.PermissionAttendanceRead))
	{
		ws.GET("/attendance", handlers.WS.AttendanceStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())

	// Open to all staff.
	admin.GET("/dashboard", handlers.Dashboard.GetDashboardData)
	admin.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	admin.GET("/settings", handlers.Setting.GetAllSettings)

	registerStudents(admin, handlers)
	registerAcademics(admin, handlers)
	registerFinance(admin, handlers)
	registerOperations(admin, handlers)
	registerAdministration(admin, handlers)

	return router
}

func registerStudents(admin *gin.RouterGroup, h *Handlers) {
	read, write := perm(model.PermissionStudentsRead), perm(model.PermissionStudentsWrite)

	admin.GET("/students", read, h.Student.ListStudents)
	admin.GET("/students/massar/:code", read, h.Student.GetStudentByMassar)
	admin.GET("/students/:id", read, h.Student.GetStudent)
	admin.POST("/students", write, h.Student.CreateStudent)
	admin.PUT("/students/:id", write, h.Student.UpdateStudent)
	admin.DELETE("/students/:id", write, h.Student.DeleteStudent)
	admin.GET("/students/:id/guardians", read, h.Student.StudentGuardians)
	admin.GET("/students/:id/consents", read, h.Transfer.ListStudentConsents)
	admin.GET("/students/:id/payments", perm(model.PermissionFeesRead), h.Fee.PaymentHistory)
	admin.GET("/students/:id/report-card", perm(model.PermissionExamsRead), h.Exam.ReportCard)

	admin.GET("/guardians", read, h.Student.ListGuardians)
	admin.GET("/guardians/:id", read, h.Student.GetGuardian)
	admin.POST("/guardians", write, h.Student.CreateGuardian)
	admin.PUT("/guardians/:id", write, h.Student.UpdateGuardian)
	admin.DELETE("/guardians/:id", write, h.Student.DeleteGuardian)

	approve := perm(model.PermissionTransfersApprove)
	admin.GET("/transfers", read, h.Transfer.ListTransfers)
	admin.GET("/transfers/:id", read, h.Transfer.GetTransfer)
	admin.POST("/transfers", write, h.Transfer.CreateTransfer)
	admin.POST("/transfers/:id/submit", write, h.Transfer.SubmitTransfer)
	admin.POST("/transfers/:id/approve", approve, h.Transfer.ApproveTransfer)
	admin.POST("/transfers/:id/reject", approve, h.Transfer.RejectTransfer)
	admin.POST("/transfers/:id/complete", approve, h.Transfer.CompleteTransfer)
	admin.POST("/transfers/:id/cancel", write, h.Transfer.CancelTransfer)

	consents := perm(model.PermissionConsentsWrite)
	admin.GET("/consents/expiring", read, h.Transfer.ExpiringConsents)
	admin.GET("/consents/:id", read, h.Transfer.GetConsent)
	admin.POST("/consents", consents, h.Transfer.CreateConsent)
	admin.PUT("/consents/:id", consents, h.Transfer.UpdateConsent)
	admin.POST("/consents/:id/revoke", consents, h.Transfer.RevokeConsent)
}

func registerAcademics(admin *gin.RouterGroup, h *Handlers) {
	read, write := perm(model.PermissionAcademicsRead), perm(model.PermissionAcademicsWrite)

	admin.GET("/academic-years", read, h.Class.ListAcademicYears)
	admin.GET("/academic-years/current", read, h.Class.CurrentAcademicYear)
	admin.POST("/academic-years", write, h.Class.CreateAcademicYear)
	admin.PUT("/academic-years/:id", write, h.Class.UpdateAcademicYear)
	admin.DELETE("/academic-years/:id", write, h.Class.DeleteAcademicYear)
	admin.GET("/academic-years/:id/terms", read, h.Class.ListTerms)
	admin.POST("/terms", write, h.Class.CreateTerm)
	admin.PUT("/terms/:id", write, h.Class.UpdateTerm)
	admin.DELETE("/terms/:id", write, h.Class.DeleteTerm)

	admin.GET("/classes", read, h.Class.ListClasses)
	admin.GET("/classes/:id", read, h.Class.GetClass)
	admin.POST("/classes", write, h.Class.CreateClass)
	admin.PUT("/classes/:id", write, h.Class.UpdateClass)
	admin.DELETE("/classes/:id", write, h.Class.DeleteClass)
	admin.GET("/classes/:id/timetable", read, h.Class.ClassTimetable)
	admin.GET("/employees/:id/timetable", read, h.Class.InstructorTimetable)

	admin.GET("/schedules/:id", read, h.Class.GetSchedule)
	admin.POST("/schedules", write, h.Class.CreateSchedule)
	admin.PUT("/schedules/:id", write, h.Class.UpdateSchedule)
	admin.DELETE("/schedules/:id", write, h.Class.DeleteSchedule)

	examRead, examWrite := perm(model.PermissionExamsRead), perm(model.PermissionExamsWrite)
	admin.GET("/exams", examRead, h.Exam.ListExams)
	admin.GET("/exams/:id", examRead, h.Exam.GetExam)
	admin.POST("/exams", examWrite, h.Exam.CreateExam)
	admin.PUT("/exams/:id", examWrite, h.Exam.UpdateExam)
	admin.DELETE("/exams/:id", examWrite, h.Exam.DeleteExam)
	admin.POST("/exams/:id/submit", examWrite, h.Exam.SubmitExam)
	admin.POST("/exams/:id/start", examWrite, h.Exam.StartExam)
	admin.POST("/exams/:id/complete", examWrite, h.Exam.CompleteExam)
	admin.POST("/exams/:id/cancel", examWrite, h.Exam.CancelExam)

	admin.GET("/grades", examRead, h.Exam.ListGrades)
	admin.GET("/grades/:id", examRead, h.Exam.GetGrade)
	admin.POST("/grades", examWrite, h.Exam.CreateGrade)
	admin.PUT("/grades/:id", examWrite, h.Exam.UpdateGrade)
	admin.DELETE("/grades/:id", examWrite, h.Exam.DeleteGrade)
	admin.POST("/grades/:id/publish", examWrite, h.Exam.PublishGrade)

	attRead, attWrite := perm(model.PermissionAttendanceRead), perm(model.PermissionAttendanceWrite)
	admin.GET("/attendance", attRead, h.Attendance.ListAttendance)
	admin.GET("/attendance/summary", attRead, h.Attendance.AttendanceSummary)
	admin.GET("/attendance/:id", attRead, h.Attendance.GetAttendance)
	admin.POST("/attendance", attWrite, h.Attendance.MarkAttendance)
	admin.POST("/attendance/bulk", attWrite, h.Attendance.BulkMarkAttendance)
	admin.PUT("/attendance/:id", attWrite, h.Attendance.UpdateAttendance)
	admin.DELETE("/attendance/:id", attWrite, h.Attendance.DeleteAttendance)
}

func registerFinance(admin *gin.RouterGroup, h *Handlers) {
	read, write := perm(model.PermissionFeesRead), perm(model.PermissionFeesWrite)

	admin.GET("/fee-bills", read, h.Fee.ListBills)
	admin.GET("/fee-bills/:id", read, h.Fee.GetBill)
	admin.POST("/fee-bills", write, h.Fee.CreateBill)
	admin.PUT("/fee-bills/:id", write, h.Fee.UpdateBill)
	admin.DELETE("/fee-bills/:id", write, h.Fee.DeleteBill)
	admin.POST("/fee-bills/:id/submit", write, h.Fee.SubmitBill)
	admin.POST("/fee-bills/:id/cancel", write, h.Fee.CancelBill)

	admin.GET("/payments", read, h.Fee.ListPayments)
	admin.GET("/payments/:id", read, h.Fee.GetPayment)
	admin.GET("/payments/:id/receipt", read, h.Fee.PaymentReceipt)
	admin.POST("/payments", write, h.Fee.CreatePayment)
	admin.DELETE("/payments/:id", write, h.Fee.DeletePayment)
	admin.POST("/payments/:id/submit", write, h.Fee.SubmitPayment)
	admin.POST("/payments/:id/verify", write, h.Fee.VerifyPayment)
	admin.POST("/payments/:id/reject", write, h.Fee.RejectPayment)
	admin.POST("/payments/:id/cancel", write, h.Fee.CancelPayment)

	accRead, accWrite := perm(model.PermissionAccountsRead), perm(model.PermissionAccountsWrite)
	admin.GET("/accounts", accRead, h.Ledger.ListAccounts)
	admin.GET("/accounts/:id", accRead, h.Ledger.GetAccount)
	admin.POST("/accounts", accWrite, h.Ledger.CreateAccount)
	admin.PUT("/accounts/:id", accWrite, h.Ledger.UpdateAccount)
	admin.DELETE("/accounts/:id", accWrite, h.Ledger.DeleteAccount)
	admin.GET("/accounts/:id/balance", accRead, h.Ledger.AccountBalance)
	admin.GET("/accounts/:id/budget-summary", accRead, h.Ledger.AccountBudgetSummary)
	admin.GET("/ledger", accRead, h.Ledger.ListEntries)
	admin.GET("/ledger/trial-balance", accRead, h.Ledger.TrialBalance)
	admin.GET("/ledger/:id", accRead, h.Ledger.GetEntry)
	admin.POST("/ledger", accWrite, h.Ledger.PostJournal)
	admin.POST("/ledger/:id/cancel", accWrite, h.Ledger.CancelJournal)

	bRead, bWrite, bApprove := perm(model.PermissionBudgetsRead), perm(model.PermissionBudgetsWrite), perm(model.PermissionBudgetsApprove)
	admin.GET("/budgets", bRead, h.Budget.ListBudgets)
	admin.GET("/budgets/:id", bRead, h.Budget.GetBudget)
	admin.POST("/budgets", bWrite, h.Budget.CreateBudget)
	admin.PUT("/budgets/:id", bWrite, h.Budget.UpdateBudget)
	admin.DELETE("/budgets/:id", bWrite, h.Budget.DeleteBudget)
	admin.POST("/budgets/:id/submit", bWrite, h.Budget.SubmitBudget)
	admin.POST("/budgets/:id/approve", bApprove, h.Budget.ApproveBudget)
	admin.POST("/budgets/:id/cancel", bWrite, h.Budget.CancelBudget)

	admin.GET("/budget-lines/:id", bRead, h.Budget.GetBudgetLine)
	admin.GET("/budget-lines/:id/alerts", bRead, h.Budget.BudgetLineAlerts)
	admin.GET("/budget-lines/:id/revisions", bRead, h.Budget.BudgetLineRevisions)
	admin.GET("/budget-lines/:id/availability", bRead, h.Budget.CheckAvailability)
	admin.POST("/budget-lines/:id/reallocate", bApprove, h.Budget.ReallocateBudgetLine)
	admin.POST("/budget-lines/:id/refresh", bWrite, h.Budget.RefreshBudgetLine)

	admin.GET("/expenses", bRead, h.Budget.ListExpenses)
	admin.GET("/expenses/:id", bRead, h.Budget.GetExpense)
	admin.POST("/expenses", bWrite, h.Budget.CreateExpense)
	admin.PUT("/expenses/:id", bWrite, h.Budget.UpdateExpense)
	admin.DELETE("/expenses/:id", bWrite, h.Budget.DeleteExpense)
	admin.POST("/expenses/:id/submit", bWrite, h.Budget.SubmitExpense)
	admin.POST("/expenses/:id/approve", bApprove, h.Budget.ApproveExpense)
	admin.POST("/expenses/:id/reject", bApprove, h.Budget.RejectExpense)
	admin.POST("/expenses/:id/pay", bApprove, h.Budget.PayExpense)
	admin.POST("/expenses/:id/cancel", bWrite, h.Budget.CancelExpense)
}

func registerOperations(admin *gin.RouterGroup, h *Handlers) {
	read, write := perm(model.PermissionHRRead), perm(model.PermissionHRWrite)

	admin.GET("/employees", read, h.HR.ListEmployees)
	admin.GET("/employees/:id", read, h.HR.GetEmployee)
	admin.POST("/employees", write, h.HR.CreateEmployee)
	admin.PUT("/employees/:id", write, h.HR.UpdateEmployee)
	admin.DELETE("/employees/:id", write, h.HR.DeleteEmployee)

	admin.GET("/hr-attendance", read, h.HR.ListHRAttendance)
	admin.GET("/hr-attendance/summary", read, h.HR.HRAttendanceSummary)
	admin.GET("/hr-attendance/:id", read, h.HR.GetHRAttendance)
	admin.POST("/hr-attendance", write, h.HR.MarkHRAttendance)
	admin.POST("/hr-attendance/bulk", write, h.HR.BulkMarkHRAttendance)
	admin.PUT("/hr-attendance/:id", write, h.HR.UpdateHRAttendance)
	admin.DELETE("/hr-attendance/:id", write, h.HR.DeleteHRAttendance)
	admin.POST("/hr-attendance/:id/approve", write, h.HR.ApproveHRAttendance)
	admin.POST("/hr-attendance/:id/reject", write, h.HR.RejectHRAttendance)

	admin.GET("/salary-slips", read, h.HR.ListSalarySlips)
	admin.GET("/salary-slips/:id", read, h.HR.GetSalarySlip)
	admin.POST("/salary-slips", write, h.HR.CreateSalarySlip)
	admin.PUT("/salary-slips/:id", write, h.HR.UpdateSalarySlip)
	admin.DELETE("/salary-slips/:id", write, h.HR.DeleteSalarySlip)
	admin.POST("/salary-slips/:id/submit", write, h.HR.SubmitSalarySlip)
	admin.POST("/salary-slips/:id/cancel", write, h.HR.CancelSalarySlip)

	invRead, invWrite := perm(model.PermissionInventoryRead), perm(model.PermissionInventoryWrite)
	stock := admin.Group("/stock")
	{
		stock.GET("/reorder", invRead, h.Stock.ReorderList)
		stock.GET("/items", invRead, h.Stock.ListItems)
		stock.GET("/items/:id", invRead, h.Stock.GetItem)
		stock.POST("/items", invWrite, h.Stock.CreateItem)
		stock.PUT("/items/:id", invWrite, h.Stock.UpdateItem)
		stock.DELETE("/items/:id", invWrite, h.Stock.DeleteItem)
		stock.GET("/entries", invRead, h.Stock.ListEntries)
		stock.GET("/entries/:id", invRead, h.Stock.GetEntry)
		stock.POST("/entries", invWrite, h.Stock.CreateEntry)
		stock.DELETE("/entries/:id", invWrite, h.Stock.DeleteEntry)
		stock.POST("/entries/:id/submit", invWrite, h.Stock.SubmitEntry)
		stock.POST("/entries/:id/cancel", invWrite, h.Stock.CancelEntry)
	}

	commRead, commWrite := perm(model.PermissionCommunicationsRead), perm(model.PermissionCommunicationsWrite)
	comms := admin.Group("/communications")
	{
		comms.GET("", commRead, h.Communication.ListCommunications)
		comms.GET("/:id", commRead, h.Communication.GetCommunication)
		comms.POST("", commWrite, h.Communication.CreateCommunication)
		comms.PUT("/:id", commWrite, h.Communication.UpdateCommunication)
		comms.DELETE("/:id", commWrite, h.Communication.DeleteCommunication)
		comms.POST("/:id/send", commWrite, h.Communication.SendCommunication)
		comms.POST("/:id/sent", commWrite, h.Communication.MarkSent)
		comms.POST("/:id/delivered", commWrite, h.Communication.MarkDelivered)
		comms.POST("/:id/read", commWrite, h.Communication.MarkRead)
		comms.POST("/:id/failed", commWrite, h.Communication.MarkFailed)
		comms.POST("/:id/retry", commWrite, h.Communication.RetryCommunication)
	}
}

func registerAdministration(admin *gin.RouterGroup, h *Handlers) {
	reports := perm(model.PermissionReportsRead)
	admin.GET("/reports", reports, h.Report.ListReports)
	admin.GET("/reports/:name", reports, h.Report.RunReport)

	jobs := perm(model.PermissionJobsRun)
	admin.GET("/jobs", jobs, h.Report.ListJobs)
	admin.POST("/jobs/:name/run", jobs, h.Report.RunJob)

	settings := perm(model.PermissionSettingsWrite)
	admin.PUT("/settings", settings, h.Setting.UpdateSettings)
	admin.POST("/settings/logo", settings, h.Setting.UploadLogo)

	usersRead, usersWrite := perm(model.PermissionAdminsRead), perm(model.PermissionAdminsWrite)
	admin.GET("/users", usersRead, h.Admin.ListAdmins)
	admin.GET("/users/:id", usersRead, h.Admin.GetAdmin)
	admin.POST("/users", usersWrite, h.Admin.CreateAdmin)
	admin.PUT("/users/:id", usersWrite, h.Admin.UpdateAdmin)
	admin.DELETE("/users/:id", usersWrite, h.Admin.DeleteAdmin)

	rolesRead, rolesWrite := perm(model.PermissionRolesRead), perm(model.PermissionRolesWrite)
	admin.GET("/roles", perm(model.PermissionRolesRead, model.PermissionAdminsRead), h.Admin.ListRoles)
	admin.GET("/roles/permissions", rolesRead, h.Admin.GetPermissions)
	admin.GET("/roles/:id", rolesRead, h.Admin.GetRole)
	admin.POST("/roles", rolesWrite, h.Admin.CreateRole)
	admin.PUT("/roles/:id", rolesWrite, h.Admin.UpdateRole)
	admin.DELETE("/roles/:id", rolesWrite, h.Admin.DeleteRole)
}
