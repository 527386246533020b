// Package testutil builds the fixtures shared by the tests: config, validator, in-memory services.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/payment"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
	"github.com/sadhanaschool/backend/services/email"
	"github.com/sadhanaschool/backend/services/logger"
	"github.com/sadhanaschool/backend/storage/database/inmem"
)

const (
	RazorpaySecret = "rzp_test_secret"
	RazorpayKeyID  = "rzp_test_key"
)

// Config returns the configuration used by the tests.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		AppName:   "Sadhana Memorial School",
		TestMode:  true,
		SecretKey: "secret",
		WorkDir:   core.Getwd(),

		FrontendBaseURL:         "http://localhost:3000",
		DefaultFromEmail:        mail.Address{Name: "Sadhana Memorial School", Address: "office@school.test"},
		AdminNotificationEmails: []string{"admin@school.test"},

		Server: core.ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			AllowedOrigins:            []string{"http://localhost:3000"},
			LoginRateLimit:            1000,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Redis:    core.RedisConfig{OrderTTL: time.Hour},
		Razorpay: core.RazorpayConfig{KeyID: RazorpayKeyID, KeySecret: RazorpaySecret, Currency: "INR"},
		School: core.SchoolConfig{
			Name:            "Sadhana Memorial School",
			AcademicYear:    "2025-2026",
			StudentIDPrefix: "SMS",
			Classes:         []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
			Sections:        []string{"A", "B", "C"},
			SectionCapacity: 20,
		},
	}
}

// Validator returns a validator with every custom tag and translation registered.
func Validator(conf *core.Config) (*validator.Validate, ut.Translator) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator, conf.School)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Logger returns a logger that drops everything.
func Logger(conf *core.Config) core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	l.Enable(false)
	return l
}

// FreezeTime makes core.NowFunc return tm until the test ends.
func FreezeTime(t *testing.T, tm time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return tm }
	t.Cleanup(func() { core.NowFunc = orig })
}

// CreateUser stores a user straight into the repository.
func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string, isActive bool) user.User {
	now := core.NowFunc()
	usr := user.User{
		ID:        core.GenerateID("user_"),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// FakeGateway hands out sequential order ids.
type FakeGateway struct {
	mu     sync.Mutex
	count  int
	Err    error
	Orders []payment.Order
}

var _ payment.Gateway = (*FakeGateway)(nil)

func (g *FakeGateway) CreateOrder(_ context.Context, amountPaise int64, currency, _ string) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return payment.Order{}, g.Err
	}
	g.count++
	order := payment.Order{
		ID:          fmt.Sprintf("order_%d", g.count),
		AmountPaise: amountPaise,
		Currency:    currency,
		KeyID:       RazorpayKeyID,
	}
	g.Orders = append(g.Orders, order)
	return order, nil
}

func (g *FakeGateway) KeyID() string { return RazorpayKeyID }

// Stack wires the domain services over one in-memory database.
type Stack struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	Mail       *emailsvc.ConsoleServiceMock
	DB         *inmemdb.DB

	UserRepo     user.Repository
	AcademicRepo academic.Repository
	FeeRepo      fees.Repository
	PeopleRepo   people.Repository

	Gateway  *FakeGateway
	Verifier *payment.HMACVerifier
	Orders   *payment.MemoryOrderStore

	Users    *user.Service
	Academic *academic.Service
	Fees     *fees.Service
	People   *people.Service
}

func NewStack(t *testing.T) *Stack {
	t.Helper()
	conf := Config()
	validate, translator := Validator(conf)
	db := inmemdb.Open()

	s := &Stack{
		Conf:         conf,
		Validate:     validate,
		Translator:   translator,
		Logger:       Logger(conf),
		Mail:         emailsvc.NewConsoleServiceMock(),
		DB:           db,
		UserRepo:     inmemdb.NewUserRepository(db),
		AcademicRepo: inmemdb.NewAcademicRepository(db),
		FeeRepo:      inmemdb.NewFeeRepository(db),
		PeopleRepo:   inmemdb.NewPeopleRepository(db),
		Gateway:      &FakeGateway{},
		Verifier:     payment.NewHMACVerifier(RazorpaySecret),
		Orders:       payment.NewMemoryOrderStore(conf.Redis.OrderTTL),
	}

	s.Users = user.NewService(s.UserRepo, s.Mail, validate, conf)
	s.Academic = academic.NewService(s.AcademicRepo, nil, validate, conf)
	s.Fees = fees.NewService(s.FeeRepo, s.Academic, fees.Gateways{
		Gateway:  s.Gateway,
		Verifier: s.Verifier,
		Orders:   s.Orders,
		Currency: conf.Razorpay.Currency,
	}, validate, conf, s.Logger)
	s.Academic.SetStructurePurger(s.Fees)
	s.People = people.NewService(s.PeopleRepo, s.Users, s.Fees, s.Academic, validate, conf, s.Logger)
	return s
}

// SeedSchool creates the configured classes and sections with the default fee structures.
func (s *Stack) SeedSchool(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := s.Academic.SeedClasses(ctx); err != nil {
		t.Fatalf("SeedClasses() failed: %v", err)
	}
	if err := s.Fees.SeedDefaultStructures(ctx); err != nil {
		t.Fatalf("SeedDefaultStructures() failed: %v", err)
	}
}

// RegisterStudent creates an active student account and completes its registration.
func (s *Stack) RegisterStudent(t *testing.T, name, email, className, section string) (user.User, people.Student) {
	t.Helper()
	usr := CreateUser(t, s.UserRepo, name, email, "", user.RoleStudent, true)
	stu, err := s.People.RegisterStudent(context.Background(), people.StudentRegistration{
		UserID:    usr.ID,
		ClassName: className,
		Section:   section,
	})
	if err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}
	return usr, stu
}

// Sign returns the gateway signature of a payment.
func (s *Stack) Sign(orderID, paymentID string) string {
	return s.Verifier.Sign(orderID, paymentID)
}
