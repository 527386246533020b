// Package container wires the application services shared by the API server and the admin CLI.
package container

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/chat"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/payment"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
	"github.com/sadhanaschool/backend/services/cache/redisstore"
	"github.com/sadhanaschool/backend/services/email"
	"github.com/sadhanaschool/backend/services/logger"
	"github.com/sadhanaschool/backend/services/payment/razorpay"
	"github.com/sadhanaschool/backend/storage/database"
	"github.com/sadhanaschool/backend/storage/database/inmem"
	"github.com/sadhanaschool/backend/storage/database/sqlxdb"
)

const engineMemory = "memory"

type (
	Options struct {
		// Migrate runs the pending migrations once the database is open.
		Migrate bool
	}

	repositories struct {
		users    user.Repository
		academic academic.Repository
		fees     fees.Repository
		people   people.Repository
	}

	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Mail       core.EmailService

		// DB is nil with the memory engine.
		DB *sqlx.DB

		Users    *user.Service
		Academic *academic.Service
		Fees     *fees.Service
		People   *people.Service
		Bot      *chat.Bot

		closers []func() error
	}
)

// NewLogger returns a rollbar logger writing to stdout with prefix. Rollbar reporting is off in debug.
func NewLogger(conf *core.Config, prefix string) core.Logger {
	l := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	l.Enable(!(conf.Debug || conf.TestMode))
	return l
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// New opens the storage of the configured engine and builds every service on top of it.
func New(ctx context.Context, conf *core.Config, logger core.Logger, opts Options) (*Container, error) {
	c := &Container{
		Conf:       conf,
		Logger:     logger,
		Validate:   validator.New(),
		Translator: newTranslator(),
	}
	core.InitValidators(c.Validate, c.Translator, conf.School)
	user.InitValidators(c.Validate, c.Translator)
	user.LoadCommonPasswords(conf.WorkDir, logger)

	repos, err := c.openStorage(ctx, opts)
	if err != nil {
		return nil, err
	}
	gateways, err := c.paymentGateways(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Mail = newEmailService(conf, logger)
	c.Users = user.NewService(repos.users, c.Mail, c.Validate, conf)
	c.Academic = academic.NewService(repos.academic, nil, c.Validate, conf)
	c.Fees = fees.NewService(repos.fees, c.Academic, gateways, c.Validate, conf, logger)
	c.Academic.SetStructurePurger(c.Fees)
	c.People = people.NewService(repos.people, c.Users, c.Fees, c.Academic, c.Validate, conf, logger)
	c.Bot = chat.NewBot(conf)
	return c, nil
}

func (c *Container) openStorage(ctx context.Context, opts Options) (repositories, error) {
	if c.Conf.Database.Engine == engineMemory {
		c.Logger.Warn("using the in-memory database: data is lost on exit")
		db := inmemdb.Open()
		return repositories{
			users:    inmemdb.NewUserRepository(db),
			academic: inmemdb.NewAcademicRepository(db),
			fees:     inmemdb.NewFeeRepository(db),
			people:   inmemdb.NewPeopleRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(ctx, c.Conf); err != nil {
		return repositories{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(ctx, c.Conf)
	if err != nil {
		return repositories{}, err
	}
	c.DB = db
	c.closers = append(c.closers, db.Close)

	if opts.Migrate {
		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			_ = c.Close()
			return repositories{}, err
		}
	}
	return repositories{
		users:    sqlxdb.NewUserRepository(db),
		academic: sqlxdb.NewAcademicRepository(db),
		fees:     sqlxdb.NewFeeRepository(db),
		people:   sqlxdb.NewPeopleRepository(db),
	}, nil
}

// paymentGateways connects razorpay and the redis order store when they are configured.
func (c *Container) paymentGateways(ctx context.Context) (fees.Gateways, error) {
	conf := c.Conf
	gw := fees.Gateways{Currency: conf.Razorpay.Currency}

	if conf.Razorpay.Enabled() {
		gw.Gateway = razorpay.NewGateway(conf.Razorpay)
		gw.Verifier = payment.NewHMACVerifier(conf.Razorpay.KeySecret)
	} else {
		c.Logger.Warn("razorpay keys missing: online payments are disabled")
	}

	if conf.Redis.Addr == "" {
		gw.Orders = payment.NewMemoryOrderStore(conf.Redis.OrderTTL)
		return gw, nil
	}
	rdb := redisstore.NewClient(conf.Redis)
	if err := redisstore.Ping(ctx, rdb); err != nil {
		_ = rdb.Close()
		return gw, errors.Wrapf(err, "connecting to redis at %s", conf.Redis.Addr)
	}
	c.closers = append(c.closers, rdb.Close)
	gw.Orders = redisstore.NewOrderStore(rdb, conf.Redis.OrderTTL)
	return gw, nil
}

// Seed creates the missing classes and sections and resets the default fee structures.
func (c *Container) Seed(ctx context.Context) error {
	if err := c.Academic.SeedClasses(ctx); err != nil {
		return errors.Wrap(err, "seeding classes")
	}
	if err := c.Fees.SeedDefaultStructures(ctx); err != nil {
		return errors.Wrap(err, "seeding fee structures")
	}
	return nil
}

// Close releases the database and redis connections.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
