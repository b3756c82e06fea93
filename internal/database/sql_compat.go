package database

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// GetDBDriver returns the configured database driver name.
func GetDBDriver() string {
	// In test mode, prefer TEST_ prefixed environment variables
	driver := os.Getenv("TEST_DB_DRIVER")
	if driver == "" {
		driver = os.Getenv("DB_DRIVER")
	}
	if driver == "" {
		driver = "postgres"
	}
	return strings.ToLower(driver)
}

// IsMySQL returns true if using MySQL/MariaDB.
func IsMySQL() bool {
	driver := GetDBDriver()
	return driver == "mysql" || driver == "mariadb"
}

// IsPostgreSQL returns true if using PostgreSQL.
func IsPostgreSQL() bool {
	return GetDBDriver() == "postgres"
}

// ConvertPlaceholders converts SQL placeholders to the format required by
// the current database. This is the only function that should be used for
// placeholder conversion in the codebase.
//
// IMPORTANT: Only ? placeholders are allowed. Using $N placeholders will panic.
// - For PostgreSQL: ? becomes $1, $2, ...
// - For MySQL: ? passed through as-is
func ConvertPlaceholders(query string) string {
	if regexp.MustCompile(`\$\d+`).MatchString(query) {
		panic(fmt.Sprintf("ConvertPlaceholders: $N placeholders are not allowed. Use ? placeholders instead.\nQuery: %s", query))
	}

	if IsMySQL() {
		return query
	}

	if strings.Contains(query, "?") {
		result := strings.Builder{}
		paramNum := 1
		for _, c := range query {
			if c == '?' {
				result.WriteString(fmt.Sprintf("$%d", paramNum))
				paramNum++
			} else {
				result.WriteRune(c)
			}
		}
		query = result.String()
	}

	return query
}

// ConvertReturning strips the RETURNING clause for MySQL. The second return
// value reports whether the caller must fall back to LastInsertId.
func ConvertReturning(query string) (string, bool) {
	if !IsMySQL() {
		return query, false
	}
	if strings.Contains(strings.ToUpper(query), "RETURNING") {
		re := regexp.MustCompile(`(?i)\s+RETURNING\s+.*$`)
		return re.ReplaceAllString(query, ""), true
	}
	return query, false
}
