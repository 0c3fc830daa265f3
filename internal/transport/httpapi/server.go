// Package httpapi exposes the services over a JSON HTTP API built on fiber.
package httpapi

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/auth"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

const defaultRequestTimeout = 15 * time.Second

type Services struct {
	Tenants     *service.TenantService
	Users       *service.UserService
	Subjects    *service.SubjectService
	Classes     *service.ClassService
	Questions   *service.QuestionService
	Exams       *service.ExamService
	Assignments *service.AssignmentService
	Submissions *service.SubmissionService
}

type Config struct {
	Tokens         *auth.Issuer
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

type Handler struct {
	svc      Services
	tokens   *auth.Issuer
	logger   *zap.Logger
	validate *validator.Validate
}

// New builds the fiber app with every route registered.
func New(svc Services, cfg Config) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	h := &Handler{
		svc:      svc,
		tokens:   cfg.Tokens,
		logger:   cfg.Logger.With(zap.String("component", "http")),
		validate: newValidator(),
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(recover.New())
	app.Use(h.requestContext(cfg.RequestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api/v1")
	api.Post("/tenants/register", h.registerTenant)
	api.Post("/auth/login", h.login)

	p := api.Group("", h.authenticate)
	p.Get("/me", h.me)

	p.Get("/tenants", h.listTenants)
	p.Get("/tenants/:id", h.getTenant)

	p.Post("/users", h.createUser)
	p.Get("/users", h.listUsers)

	p.Post("/subjects", h.createSubject)
	p.Get("/subjects", h.listSubjects)

	p.Post("/classes", h.createClass)
	p.Get("/classes", h.listClasses)
	p.Post("/classes/transfer", h.transferStudent)
	p.Post("/classes/:id/members", h.addMembers)
	p.Delete("/classes/:id/members/:userId", h.removeMember)
	p.Get("/classes/:id/assignments", h.listClassAssignments)

	p.Post("/questions", h.createQuestion)
	p.Get("/questions", h.listQuestions)
	p.Get("/questions/:id", h.getQuestion)
	p.Patch("/questions/:id", h.updateQuestion)
	p.Delete("/questions/:id", h.deleteQuestion)

	p.Post("/exams", h.createExam)
	p.Post("/exams/generate", h.generateExam)
	p.Get("/exams", h.listExams)
	p.Get("/exams/:id", h.getExam)
	p.Patch("/exams/:id", h.updateExam)
	p.Delete("/exams/:id", h.deleteExam)
	p.Post("/exams/:id/questions", h.linkQuestions)
	p.Delete("/exams/:id/questions/:questionId", h.removeQuestion)

	p.Post("/assignments", h.createAssignment)
	p.Get("/assignments/:id", h.getAssignment)
	p.Patch("/assignments/:id", h.updateAssignment)
	p.Delete("/assignments/:id", h.deleteAssignment)
	p.Post("/assignments/:id/submit", h.submit)
	p.Get("/assignments/:id/submissions", h.listSubmissions)
	p.Get("/assignments/:id/my-submission", h.mySubmission)

	p.Get("/submissions/me", h.listMySubmissions)
	p.Post("/submissions/:id/grade", h.grade)

	return app
}
