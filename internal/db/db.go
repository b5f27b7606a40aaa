package db

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pranaya890/LMS/internal/config"
	applog "github.com/pranaya890/LMS/internal/log"
	"github.com/pranaya890/LMS/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// allModels lists every entity in dependency order for AutoMigrate.
var allModels = []interface{}{
	&models.Category{}, &models.Book{}, &models.Reader{}, &models.Admin{},
	&models.IssueRequest{}, &models.Issue{}, &models.Fine{},
	&models.Notification{}, &models.BookIssuanceRecord{}, &models.BookRating{},
}

// ConnectAndMigrate opens the database named by cfg.DatabaseDSN and brings
// the schema up to date. Postgres DSNs (url or key=value form) use the
// postgres driver; anything else is treated as a sqlite path.
func ConnectAndMigrate(cfg config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(dialector(dsn), gormCfg)
		if err == nil {
			break
		}
		applog.Warn("retrying DB connection", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	applog.Info("database connected", zap.String("dsn", maskDSN(dsn)))

	// MIGRATIONS=1 runs SQL migrations via golang-migrate; the default path
	// is AutoMigrate (dev convenience, and the only option for tests).
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range allModels {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"readers", "admins", "books", "issues"} {
		if !db.Migrator().HasTable(table) {
			return nil, fmt.Errorf("missing table after migration: %s", table)
		}
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		if err := Seed(db); err != nil {
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	return db, nil
}

// IsPostgresDSN reports whether the DSN targets postgres rather than sqlite.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return regexp.MustCompile(`(?i)\b(host|dbname)=`).MatchString(lower)
}

func dialector(dsn string) gorm.Dialector {
	if IsPostgresDSN(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func maskDSN(dsn string) string {
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	if u, ok := strings.CutPrefix(masked, "postgres://"); ok {
		if at := strings.Index(u, "@"); at >= 0 {
			masked = "postgres://***@" + u[at+1:]
		}
	}
	return masked
}
