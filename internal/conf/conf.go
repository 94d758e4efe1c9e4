package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/reminder"
)

// Config agrupa toda la configuración de la aplicación, cargada de entorno.
type Config struct {
	Port string

	Storage  StorageConfig
	Reminder ReminderConfig
	Contact  ContactConfig
	Twilio   TwilioConfig
	SendGrid SendGridConfig

	// Templates viene del YAML de mensajes (opcional).
	Templates reminder.TemplateStrings
}

// StorageConfig elige el backend de persistencia. Con DatabaseURL se usa
// Postgres; si no, sqlite en SQLitePath; memoria como último recurso.
type StorageConfig struct {
	Driver      string // "postgres" | "sqlite" | "memory"
	DatabaseURL string
	SQLitePath  string
}

// ReminderConfig son los parámetros de operación del engine.
type ReminderConfig struct {
	HorizonDays     int
	GraceWindow     time.Duration
	SnoozeDefault   time.Duration
	MaxReminders    int
	Channels        []string
	DispatchWorkers int
	ExtendInterval  time.Duration
	ReportInterval  time.Duration
}

// ContactConfig es el contacto del usuario del despliegue local. Con al menos
// un campo, el engine también dirige recordatorios y reportes al usuario por
// SMS/email, además de los canales locales.
type ContactConfig struct {
	Phone string
	Email string
}

func (c ContactConfig) Enabled() bool {
	return c.Phone != "" || c.Email != ""
}

// TwilioConfig habilita el canal SMS cuando las tres claves están presentes.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// SendGridConfig habilita el canal email cuando hay API key.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
}

func (c SendGridConfig) Enabled() bool {
	return c.APIKey != "" && c.FromEmail != ""
}

// LoadFromEnv arma la Config desde variables de entorno, con defaults
// pensados para correr local sin nada configurado.
func LoadFromEnv() *Config {
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		homeDir, _ := os.UserHomeDir()
		sqlitePath = filepath.Join(homeDir, ".medicine-reminder", "reminders.db")
	}

	databaseURL := os.Getenv("DATABASE_URL")

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))
	if driver == "" {
		if databaseURL != "" {
			driver = "postgres"
		} else {
			driver = "sqlite"
		}
	}

	channels := splitList(os.Getenv("REMINDER_CHANNELS"))

	templates, _ := LoadTemplates(os.Getenv("TEMPLATES_PATH"))

	return &Config{
		Port: envOr("PORT", "8080"),
		Storage: StorageConfig{
			Driver:      driver,
			DatabaseURL: databaseURL,
			SQLitePath:  sqlitePath,
		},
		Reminder: ReminderConfig{
			HorizonDays:     envInt("HORIZON_DAYS", 30),
			GraceWindow:     time.Duration(envInt("GRACE_WINDOW_MINUTES", 15)) * time.Minute,
			SnoozeDefault:   time.Duration(envInt("SNOOZE_MINUTES", 5)) * time.Minute,
			MaxReminders:    envInt("MAX_REMINDERS", 3),
			Channels:        channels,
			DispatchWorkers: envInt("DISPATCH_WORKERS", 4),
			ExtendInterval:  time.Duration(envInt("EXTEND_INTERVAL_HOURS", 24)) * time.Hour,
			ReportInterval:  time.Duration(envInt("REPORT_INTERVAL_HOURS", 0)) * time.Hour,
		},
		Contact: ContactConfig{
			Phone: os.Getenv("USER_PHONE"),
			Email: os.Getenv("USER_EMAIL"),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
		SendGrid: SendGridConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromEmail: os.Getenv("FROM_EMAIL"),
		},
		Templates: templates,
	}
}

// ToEngineConfig convierte a la config del engine de recordatorios.
func (c *Config) ToEngineConfig() reminder.Config {
	return reminder.Config{
		HorizonDays:     c.Reminder.HorizonDays,
		GraceWindow:     c.Reminder.GraceWindow,
		DefaultSnooze:   c.Reminder.SnoozeDefault,
		MaxReminders:    c.Reminder.MaxReminders,
		UserChannels:    c.Reminder.Channels,
		DispatchWorkers: c.Reminder.DispatchWorkers,
		ExtendInterval:  c.Reminder.ExtendInterval,
		ReportInterval:  c.Reminder.ReportInterval,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
