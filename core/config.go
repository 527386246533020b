package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
		LoginRateLimit            float64 // requests per second per client
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		OrderTTL time.Duration
	}

	RazorpayConfig struct {
		KeyID     string
		KeySecret string
		Currency  string
	}

	SchoolConfig struct {
		Name            string
		AcademicYear    string
		StudentIDPrefix string
		Classes         []string
		Sections        []string
		SectionCapacity int
	}

	SchedulerConfig struct {
		FeeReminderSpec string // robfig/cron spec; empty disables the job
	}

	Config struct {
		Env       string
		Build     string
		AppName   string
		Debug     bool
		TestMode  bool
		SecretKey string
		WorkDir   string

		FrontendBaseURL         string
		DefaultFromEmail        mail.Address
		AdminNotificationEmails []string
		RollbarToken            string
		SendgridAPIKey          string

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		Razorpay  RazorpayConfig
		School    SchoolConfig
		Scheduler SchedulerConfig
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

func (rc RazorpayConfig) Enabled() bool {
	return rc.KeyID != "" && rc.KeySecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Sadhana Memorial School")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "no-reply@example.com")
	v.SetDefault("adminNotificationEmails", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.allowedOrigins", "http://localhost:3000")
	v.SetDefault("server.loginRateLimit", 5.0)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "smart_school_db")
	v.SetDefault("database.user", "school")
	v.SetDefault("database.password", "school")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.orderTTL", 24*time.Hour)

	v.SetDefault("razorpay.keyID", "")
	v.SetDefault("razorpay.keySecret", "")
	v.SetDefault("razorpay.currency", "INR")

	v.SetDefault("school.name", "Sadhana Memorial School")
	v.SetDefault("school.academicYear", "2025-2026")
	v.SetDefault("school.studentIDPrefix", "SMS")
	v.SetDefault("school.classes", "1,2,3,4,5,6,7,8,9,10")
	v.SetDefault("school.sections", "A,B,C")
	v.SetDefault("school.sectionCapacity", 20)

	v.SetDefault("scheduler.feeReminderSpec", "0 7 * * *")
}

// NewConfig reads the configuration of the current environment.
// ENV selects the environment (DEV by default) and the env var prefix, so that
// `DEV_DATABASE_HOST` overrides `database.host` in DEV.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()
	loadDotEnv(filepath.Join(wd, "config", ".env."+strings.ToLower(env)))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		from = &mail.Address{Address: "no-reply@example.com"}
	}
	from.Name = v.GetString("appName")

	return &Config{
		Env:       env,
		Build:     v.GetString("build"),
		AppName:   v.GetString("appName"),
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		SecretKey: v.GetString("secretKey"),
		WorkDir:   wd,

		FrontendBaseURL:         v.GetString("frontendBaseURL"),
		DefaultFromEmail:        *from,
		AdminNotificationEmails: SplitList(v.GetString("adminNotificationEmails")),
		RollbarToken:            v.GetString("rollbarToken"),
		SendgridAPIKey:          v.GetString("sendgridAPIKey"),

		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			Host:                      v.GetString("server.host"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			AllowedOrigins:            SplitList(v.GetString("server.allowedOrigins")),
			LoginRateLimit:            v.GetFloat64("server.loginRateLimit"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			OrderTTL: v.GetDuration("redis.orderTTL"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("razorpay.keyID"),
			KeySecret: v.GetString("razorpay.keySecret"),
			Currency:  v.GetString("razorpay.currency"),
		},
		School: SchoolConfig{
			Name:            v.GetString("school.name"),
			AcademicYear:    v.GetString("school.academicYear"),
			StudentIDPrefix: v.GetString("school.studentIDPrefix"),
			Classes:         SplitList(v.GetString("school.classes")),
			Sections:        SplitList(v.GetString("school.sections")),
			SectionCapacity: v.GetInt("school.sectionCapacity"),
		},
		Scheduler: SchedulerConfig{
			FeeReminderSpec: v.GetString("scheduler.feeReminderSpec"),
		},
	}
}

// load .env if it exists (ignore if it does not)
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			panic(fmt.Sprintf("config.godotenv(%s): %v", path, err))
		}
	} else if !os.IsNotExist(err) {
		panic(fmt.Sprintf("config.os.Stat(%s): %v", path, err))
	}
}
