package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	userDomain "github.com/allisson/newsletter/internal/user/domain"
	userUseCase "github.com/allisson/newsletter/internal/user/usecase"
)

// RunCreateUser creates an admin user allowed to publish newsletters. When password is empty it
// is read from io.Reader, so it can stay out of the shell history.
func RunCreateUser(
	ctx context.Context,
	users userUseCase.UseCase,
	logger *slog.Logger,
	io IOTuple,
	name string,
	email string,
	password string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if password == "" {
		var err error
		password, err = promptForPassword(io)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	user, err := users.CreateUser(ctx, userUseCase.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		if err := outputUserJSON(user, io); err != nil {
			return err
		}
	} else {
		outputUserText(user, io)
	}

	logger.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)
	return nil
}

func promptForPassword(io IOTuple) (string, error) {
	_, _ = fmt.Fprint(io.Writer, "Password: ")

	scanner := bufio.NewScanner(io.Reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no password provided")
	}
	_, _ = fmt.Fprintln(io.Writer)

	return strings.TrimRight(scanner.Text(), "\r"), nil
}

func outputUserText(user *userDomain.User, io IOTuple) {
	_, _ = fmt.Fprintln(io.Writer, "User created successfully!")
	_, _ = fmt.Fprintf(io.Writer, "ID:    %s\n", user.ID)
	_, _ = fmt.Fprintf(io.Writer, "Name:  %s\n", user.Name)
	_, _ = fmt.Fprintf(io.Writer, "Email: %s\n", user.Email)
}

func outputUserJSON(user *userDomain.User, io IOTuple) error {
	return writeJSON(io.Writer, map[string]any{
		"id":         user.ID.String(),
		"name":       user.Name,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}
