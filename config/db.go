package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"hotel-ledger/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// LedgerModels is the migration order: parents before children.
var LedgerModels = []any{
	&models.Admin{},
	&models.HotelSetting{},
	&models.RoomType{},
	&models.Customer{},
	&models.Room{},
	&models.Reservation{},
	&models.RoomAssignment{},
	&models.Stay{},
	&models.Night{},
	&models.Payment{},
}

// SeedDatabase creates the rows a fresh front desk needs. It never overwrites data.
func SeedDatabase(db *gorm.DB, log *zap.Logger) {
	// ---------------- Admins ----------------
	var adminCount int64
	db.Model(&models.Admin{}).Count(&adminCount)
	if adminCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(envOrDefault("DEFAULT_ADMIN_PASSWORD", "admin123")), bcrypt.DefaultCost)
		if err != nil {
			log.Warn("failed to hash default admin password", zap.Error(err))
		} else {
			admin := models.Admin{
				FullName: "Front Desk",
				Username: "admin@hotel.local",
				Password: string(hash),
			}
			if err := db.Create(&admin).Error; err != nil {
				log.Warn("failed to create default admin", zap.Error(err))
			} else {
				log.Info("default admin seeded", zap.Uint("admin_id", admin.ID))
			}
		}
	}

	// ---------------- RoomTypes ----------------
	var rtCount int64
	db.Model(&models.RoomType{}).Count(&rtCount)
	if rtCount == 0 {
		roomTypes := []models.RoomType{
			{TypeName: "Standard", Description: "Standard Room", MaxGuests: 2},
			{TypeName: "Superior", Description: "Superior Room", MaxGuests: 3},
			{TypeName: "Deluxe", Description: "Deluxe Room", MaxGuests: 4},
			{TypeName: "Connecting", Description: "Connecting Room", MaxGuests: 5},
		}
		if err := db.Create(&roomTypes).Error; err != nil {
			log.Warn("failed to seed room types", zap.Error(err))
		} else {
			log.Info("room types seeded", zap.Int("count", len(roomTypes)))
		}
	}

	// ---------------- Hotel settings ----------------
	var hsCount int64
	db.Model(&models.HotelSetting{}).Count(&hsCount)
	if hsCount == 0 {
		hotel := models.HotelSetting{Name: envOrDefault("HOTEL_NAME", "Hotel")}
		if err := db.Create(&hotel).Error; err != nil {
			log.Warn("failed to seed hotel settings", zap.Error(err))
		}
	}
}

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func mysqlDSNFromURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	// ledger dates are midnight UTC; the driver must not shift them
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode())
	return dsn, dbName, nil
}

func resolveMySQLDSN() (string, string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, strings.TrimSpace(os.Getenv("DB_NAME")), nil
	}

	user := envOrDefault("DB_USER", "root")
	pass := envOrDefault("DB_PASS", "")
	host := envOrDefault("DB_HOST", "127.0.0.1")
	port := envOrDefault("DB_PORT", "3306")
	dbName := envOrDefault("DB_NAME", "hotel_ledger")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, pass, host, port, dbName,
	)
	return dsn, dbName, nil
}

func ConnectDatabase(log *zap.Logger) error {
	dsn, dbName, err := resolveMySQLDSN()
	if err != nil {
		return err
	}

	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(envInt("DB_MAX_OPEN_CONNS", 20))
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		log.Info("cannot get raw sql.DB", zap.Error(err))
	}

	DB = db

	if err := DB.AutoMigrate(LedgerModels...); err != nil {
		return err
	}
	log.Info("database ready", zap.String("database", dbName))

	SeedDatabase(DB, log)
	return nil
}
