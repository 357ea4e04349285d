// Package main 把已注册用户提升为管理员
//
// 用法: promote-admin -email admin@pearlbox.com
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pearlbox/internal/config"
	"pearlbox/internal/shared/model"
	"pearlbox/internal/shared/storage/dbutil"
	"pearlbox/internal/shared/storage/factory"
	"pearlbox/pkg/logging"
)

func main() {
	email := flag.String("email", "", "email of the user to promote")
	demote := flag.Bool("demote", false, "set the role back to customer")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote-admin -email <address> [-demote]")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.Default("promote-admin")

	driver, err := dbutil.ParseDriverType(cfg.DatabaseDriver)
	if err != nil {
		logger.WithError(err).Error("[admin] Invalid database driver")
		os.Exit(1)
	}
	store, err := factory.NewPersistentStore(driver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Error("[admin] Failed to open database")
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := store.GetUserByEmail(ctx, *email)
	if err != nil {
		logger.WithError(err).Error("[admin] Lookup failed")
		os.Exit(1)
	}
	if user == nil {
		fmt.Fprintf(os.Stderr, "no user with email %s\n", *email)
		os.Exit(1)
	}

	role := model.UserRoleAdmin
	if *demote {
		role = model.UserRoleCustomer
	}
	if err := store.SetUserRole(ctx, user.ID, role); err != nil {
		logger.WithError(err).Error("[admin] SetUserRole failed")
		os.Exit(1)
	}
	fmt.Printf("%s is now %s\n", user.Email, role)
}
