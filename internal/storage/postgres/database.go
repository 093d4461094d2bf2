package postgres

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

var DB *gorm.DB

// GetDB возвращает глобальную переменную DB (для тестирования)
func GetDB() *gorm.DB {
	return DB
}

// InitDB подключается к базе данных PostgreSQL и устанавливает глобальную переменную DB
func InitDB(dsn string) error {
	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	DB = db
	slog.Info("successfully connected to the database")
	return nil
}

// Migrate создает или обновляет схему для всех моделей
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...).Error; err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// CloseDB закрывает соединение с базой данных
func CloseDB() error {
	if DB == nil {
		return nil
	}

	err := DB.Close()
	if err != nil {
		return fmt.Errorf("failed to close the database connection: %w", err)
	}

	slog.Info("database connection closed")
	return nil
}

// InitDBWithConnection для тестирования (позволяет инъекцию соединения БД)
func InitDBWithConnection(db *gorm.DB) {
	DB = db
}

// parseID переводит строковый ID модели в первичный ключ
func parseID(id string) (uint, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func optionalID(id *uint) *string {
	if id == nil {
		return nil
	}
	s := fmt.Sprint(*id)
	return &s
}

func optionalUint(id *string) *uint {
	if id == nil {
		return nil
	}
	n, ok := parseID(*id)
	if !ok {
		return nil
	}
	return &n
}
