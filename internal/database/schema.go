package database

import (
	"context"
	"database/sql"
)

// schema is idempotent DDL for the rental store. Foreign keys cascade so a
// hard user delete removes rentals, ledger rows and tokens with it.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            VARCHAR(36)  NOT NULL PRIMARY KEY,
    username      VARCHAR(64)  NOT NULL,
    email         VARCHAR(255) NOT NULL,
    mobile        VARCHAR(16)  NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    name          VARCHAR(255) NOT NULL,
    profile_image TEXT NULL,
    role          ENUM('user','admin') NOT NULL DEFAULT 'user',
    credits       INT NOT NULL DEFAULT 0,
    total_rentals INT NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_users_username (username),
    UNIQUE KEY uq_users_email (email),
    UNIQUE KEY uq_users_mobile (mobile)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id    VARCHAR(36) NOT NULL,
    token_hash CHAR(64) NOT NULL,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_refresh_hash (token_hash),
    KEY idx_refresh_user (user_id),
    CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS umbrellas (
    id          VARCHAR(36)  NOT NULL PRIMARY KEY,
    description VARCHAR(255) NOT NULL,
    location    VARCHAR(255) NOT NULL,
    status      ENUM('available','rented','out_of_stock') NOT NULL DEFAULT 'available',
    inventory   INT NOT NULL DEFAULT 1,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    UNIQUE KEY uq_umbrella_station (description, location)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS rental_history (
    id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id      VARCHAR(36)  NOT NULL,
    user_name    VARCHAR(255) NOT NULL,
    umbrella_id  VARCHAR(36)  NOT NULL,
    rented_at    DATETIME NOT NULL,
    deadline_at  DATETIME NULL,
    returned_at  DATETIME NULL,
    status       ENUM('active','completed','cancelled') NOT NULL DEFAULT 'active',
    credits_used INT NOT NULL DEFAULT 50,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_rental_user (user_id, rented_at),
    KEY idx_rental_due (status, deadline_at),
    CONSTRAINT fk_rental_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    CONSTRAINT fk_rental_umbrella FOREIGN KEY (umbrella_id) REFERENCES umbrellas(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE IF NOT EXISTS credit_transactions (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id     VARCHAR(36) NOT NULL,
    rental_id   BIGINT UNSIGNED NULL,
    type        ENUM('rental','topup','bonus','refund') NOT NULL,
    amount      INT NOT NULL,
    description VARCHAR(255) NOT NULL,
    method      VARCHAR(64) NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    KEY idx_credit_user (user_id, created_at),
    CONSTRAINT fk_credit_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    CONSTRAINT fk_credit_rental FOREIGN KEY (rental_id) REFERENCES rental_history(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// Migrate creates any missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
