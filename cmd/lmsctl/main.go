package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pranaya890/LMS/internal/config"
	"github.com/pranaya890/LMS/internal/db"
	applog "github.com/pranaya890/LMS/internal/log"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// lmsctl is the operator's toolbox: tasks that should not live behind the
// web surface, run from the library server itself.

var rootCmd = &cobra.Command{
	Use:   "lmsctl",
	Short: "Library management system admin tooling",
}

var createAdminCmd = &cobra.Command{
	Use:   "createadmin <admin-id> <name>",
	Short: "Create an admin account, prompting for the password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		pass, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if pass == "" || pass != confirm {
			return errors.New("passwords empty or mismatched")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.Admin{AdminID: args[0], Name: args[1], Password: string(hash)}
		if err := conn.Create(&admin).Error; err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		applog.Info("admin created", zap.String("admin_id", admin.AdminID))
		return nil
	},
}

var importBooksCmd = &cobra.Command{
	Use:   "import-books <file.csv>",
	Short: "Bulk import books from a CSV (name,isbn,author,category,stock,rating)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		imported, skipped, err := importBooks(conn, f)
		if err != nil {
			return err
		}
		applog.Info("import finished", zap.Int("imported", imported), zap.Int("skipped", skipped))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		applog.Info("migrations completed")
		return nil
	},
}

func connect() (*gorm.DB, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	return db.ConnectAndMigrate(cfg)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// importBooks reads CSV rows and inserts any book whose ISBN is not already
// present. A header row is detected and skipped.
func importBooks(conn *gorm.DB, r io.Reader) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	first := true
	for {
		row, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return imported, skipped, rerr
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
				continue
			}
		}
		if len(row) < 3 {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[0])
		isbn := strings.TrimSpace(row[1])
		author := strings.TrimSpace(row[2])
		if name == "" || isbn == "" || author == "" || len(isbn) > 13 {
			skipped++
			continue
		}
		var existing int64
		if err := conn.Model(&models.Book{}).Where("isbn = ?", isbn).Count(&existing).Error; err != nil {
			return imported, skipped, err
		}
		if existing > 0 {
			skipped++
			continue
		}
		book := models.Book{Name: name, ISBN: isbn, Author: author, Rating: 4.0}
		if len(row) > 3 {
			if cat := strings.TrimSpace(row[3]); cat != "" {
				var category models.Category
				ferr := conn.Where("name = ?", cat).First(&category).Error
				if errors.Is(ferr, gorm.ErrRecordNotFound) {
					category = models.Category{Name: cat}
					ferr = conn.Create(&category).Error
				}
				if ferr != nil {
					return imported, skipped, ferr
				}
				book.CategoryID = &category.ID
			}
		}
		if len(row) > 4 {
			if n, aerr := strconv.Atoi(strings.TrimSpace(row[4])); aerr == nil && n >= 0 {
				book.NumberInStock = n
			}
		}
		if len(row) > 5 {
			if f, aerr := strconv.ParseFloat(strings.TrimSpace(row[5]), 64); aerr == nil && f >= 1 && f <= 5 {
				book.Rating = f
			}
		}
		if err := conn.Create(&book).Error; err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

func main() {
	rootCmd.AddCommand(createAdminCmd, importBooksCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
