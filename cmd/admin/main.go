// Command admin manages staff roles and account bans from the shell.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"lcnetwork/internal/config"
	"lcnetwork/internal/database"
	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
	"lcnetwork/internal/service"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "lcnetwork-admin",
		Usage: "manage moderator and admin grants",
	}
	app.Commands = []*cli.Command{
		{
			Name:      "grant-role",
			Usage:     "grant a role to a user",
			ArgsUsage: "<user_id> <moderator|admin>",
			Action:    runGrantRole,
		},
		{
			Name:      "revoke-role",
			Usage:     "revoke a role from a user",
			ArgsUsage: "<user_id> <moderator|admin>",
			Action:    runRevokeRole,
		},
		{
			Name:   "list-staff",
			Usage:  "list moderators and admins",
			Action: runListStaff,
		},
		{
			Name:      "unban",
			Usage:     "reactivate a banned account",
			ArgsUsage: "<user_id>",
			Action:    runUnban,
		},
	}
	app.RunAndExitOnError()
}

func userService() (*service.UserService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	repos := repository.NewRepos(db)
	return service.NewUserService(repos.Users, repos.Roles, service.NewActivityService(repos.Activity)), nil
}

func userAndRole(cctx *cli.Context) (uint, models.Role, error) {
	if cctx.NArg() < 2 {
		return 0, "", cli.Exit("need a user id and a role", 1)
	}
	id, err := parseUserID(cctx.Args().Get(0))
	if err != nil {
		return 0, "", err
	}
	return id, models.Role(strings.ToLower(cctx.Args().Get(1))), nil
}

func parseUserID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, cli.Exit(fmt.Sprintf("invalid user id %q", s), 1)
	}
	return uint(id), nil
}

func runGrantRole(cctx *cli.Context) error {
	userID, role, err := userAndRole(cctx)
	if err != nil {
		return err
	}
	users, err := userService()
	if err != nil {
		return err
	}
	roles, err := users.GrantRole(cctx.Context, userID, role, nil)
	if err != nil {
		return err
	}
	fmt.Printf("user %d now has roles: %s\n", userID, roleList(roles))
	return nil
}

func runRevokeRole(cctx *cli.Context) error {
	userID, role, err := userAndRole(cctx)
	if err != nil {
		return err
	}
	users, err := userService()
	if err != nil {
		return err
	}
	roles, err := users.RevokeRole(cctx.Context, userID, role)
	if err != nil {
		return err
	}
	fmt.Printf("user %d now has roles: %s\n", userID, roleList(roles))
	return nil
}

func runListStaff(cctx *cli.Context) error {
	users, err := userService()
	if err != nil {
		return err
	}
	staff, err := users.Staff(cctx.Context)
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		fmt.Println("no moderators or admins")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLES")
	for _, u := range staff {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, roleList(u.Roles))
	}
	return w.Flush()
}

func runUnban(cctx *cli.Context) error {
	if cctx.NArg() < 1 {
		return cli.Exit("need a user id", 1)
	}
	userID, err := parseUserID(cctx.Args().First())
	if err != nil {
		return err
	}
	users, err := userService()
	if err != nil {
		return err
	}
	if err := users.Unban(cctx.Context, userID); err != nil {
		return err
	}
	fmt.Printf("user %d reactivated\n", userID)
	return nil
}

func roleList(roles []models.UserRole) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r.Role))
	}
	return strings.Join(names, ",")
}
