package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/cvvin/internal/document"
	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/tui"
)

var commonSkills = []string{
	"JavaScript", "TypeScript", "React", "Node.js", "Python", "Java",
	"Docker", "AWS", "Git", "SQL", "MongoDB", "GraphQL", "REST APIs",
}

var commonRoles = []string{
	"Frontend Developer", "Backend Developer", "Full Stack Developer",
	"Data Scientist", "DevOps Engineer", "Product Manager", "UI/UX Designer",
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit your candidate profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile",
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields; only the flags given are changed",
	RunE:  runProfileSet,
}

var profileSkillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage your skills",
}

var profileSkillsAddCmd = &cobra.Command{
	Use:   "add <skill>...",
	Short: "Add skills",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSkillsAdd,
}

var profileSkillsRemoveCmd = &cobra.Command{
	Use:   "remove <skill>...",
	Short: "Remove skills",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSkillsRemove,
}

var profileSkillsPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose skills from the suggestions interactively",
	Args:  cobra.NoArgs,
	RunE:  runSkillsPick,
}

var profileRolesCmd = &cobra.Command{
	Use:   "roles [role]...",
	Short: "Toggle interested roles; with no arguments, pick them interactively",
	RunE:  runRoles,
}

var profileResumeCmd = &cobra.Command{
	Use:   "resume <file.pdf>",
	Short: "Attach a resume to your profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileResume,
}

var profilePictureCmd = &cobra.Command{
	Use:   "picture <image>",
	Short: "Set your profile picture",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilePicture,
}

var profileSkipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Skip profile setup for now",
	Args:  cobra.NoArgs,
	RunE:  runProfileSkip,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file.json|->",
	Short: "Import a profile exported from the web app",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileImport,
}

var profileSuggestCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List suggested skills and roles",
	Args:  cobra.NoArgs,
	RunE:  runProfileSuggestions,
}

var profileFields = []struct {
	flag  string
	usage string
	field func(*model.ProfileUpdate) **string
}{
	{"name", "full name", func(u *model.ProfileUpdate) **string { return &u.FullName }},
	{"email", "contact email", func(u *model.ProfileUpdate) **string { return &u.Email }},
	{"phone", "phone number", func(u *model.ProfileUpdate) **string { return &u.PhoneNumber }},
	{"qualification", "highest qualification", func(u *model.ProfileUpdate) **string { return &u.Qualification }},
	{"college", "college or university", func(u *model.ProfileUpdate) **string { return &u.College }},
	{"semester", "current semester", func(u *model.ProfileUpdate) **string { return &u.CurrentSemester }},
	{"year", "year of passing", func(u *model.ProfileUpdate) **string { return &u.YearOfPassing }},
	{"pursuing", "degree currently pursuing", func(u *model.ProfileUpdate) **string { return &u.CurrentlyPursuing }},
}

func init() {
	for _, f := range profileFields {
		profileSetCmd.Flags().String(f.flag, "", f.usage)
	}
	profileSkillsCmd.AddCommand(profileSkillsAddCmd, profileSkillsRemoveCmd, profileSkillsPickCmd)
	profileCmd.AddCommand(
		profileShowCmd,
		profileSetCmd,
		profileSkillsCmd,
		profileRolesCmd,
		profileResumeCmd,
		profilePictureCmd,
		profileSkipCmd,
		profileImportCmd,
		profileSuggestCmd,
	)
	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	printProfile(cmd.OutOrStdout(), a.sessions.CurrentProfile())
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	var u model.ProfileUpdate
	for _, f := range profileFields {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.flag)
		*f.field(&u) = &v
	}
	if u.Empty() {
		return fmt.Errorf("nothing to update; pass at least one of --name, --email, --phone, --qualification, --college, --semester, --year, --pursuing")
	}

	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.sessions.SaveProfile(cmd.Context(), u)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Profile saved.")
	if !p.IsComplete {
		fmt.Fprintln(cmd.OutOrStdout(), "Add your full name and email to complete it.")
	}
	return nil
}

func runSkillsAdd(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	var p model.Profile
	for _, s := range args {
		if p, err = a.sessions.AddSkill(cmd.Context(), s); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Skills: %s\n", listOrDash(p.Skills))
	return nil
}

func runSkillsRemove(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	var p model.Profile
	for _, s := range args {
		if p, err = a.sessions.RemoveSkill(cmd.Context(), s); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Skills: %s\n", listOrDash(p.Skills))
	return nil
}

func runSkillsPick(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	current := a.sessions.CurrentProfile().Skills
	options := model.UniqueFold(append(slices.Clone(commonSkills), a.tax.SkillNames()...))
	chosen, ok, err := tui.RunMultiPicker("Select your skills", options, current)
	if err != nil || !ok {
		return err
	}
	skills := keepUnlisted(chosen, current, options)
	p, err := a.sessions.SaveProfile(cmd.Context(), model.ProfileUpdate{Skills: &skills})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Skills: %s\n", listOrDash(p.Skills))
	return nil
}

func runRoles(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	var p model.Profile
	if len(args) == 0 {
		current := a.sessions.CurrentProfile().InterestedRoles
		chosen, ok, err := tui.RunMultiPicker("Select roles you're interested in", commonRoles, current)
		if err != nil || !ok {
			return err
		}
		roles := keepUnlisted(chosen, current, commonRoles)
		if p, err = a.sessions.SaveProfile(cmd.Context(), model.ProfileUpdate{InterestedRoles: &roles}); err != nil {
			return err
		}
	} else {
		for _, r := range args {
			if p, err = a.sessions.ToggleRole(cmd.Context(), r); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Interested roles: %s\n", listOrDash(p.InterestedRoles))
	return nil
}

// keepUnlisted appends the entries of current that the picker never offered,
// so custom values survive an interactive edit.
func keepUnlisted(chosen, current, options []string) []string {
	out := slices.Clone(chosen)
	for _, c := range current {
		if !slices.ContainsFunc(options, func(o string) bool { return strings.EqualFold(o, c) }) {
			out = append(out, c)
		}
	}
	return out
}

func runProfileResume(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	up, err := readUpload(args[0], a.cfg.Analysis.MaxUploadBytes)
	if err != nil {
		return err
	}
	doc, err := document.AcceptResume(up, model.SourceProfileStored)
	if err != nil {
		return err
	}
	if _, err := a.sessions.SaveProfile(cmd.Context(), model.ProfileUpdate{Resume: &doc}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resume %q attached to your profile.\n", doc.Name)
	return nil
}

func runProfilePicture(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	up, err := readUpload(args[0], a.cfg.Analysis.MaxUploadBytes)
	if err != nil {
		return err
	}
	doc, err := document.AcceptPicture(up)
	if err != nil {
		return err
	}
	if _, err := a.sessions.SaveProfile(cmd.Context(), model.ProfileUpdate{ProfilePicture: &doc}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile picture set to %q.\n", doc.Name)
	return nil
}

func runProfileSkip(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sessions.SkipProfileSetup(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Profile setup skipped. You can finish it any time with `cvvin profile set`.")
	return nil
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	p, err := a.sessions.ImportProfile(cmd.Context(), data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Profile imported.")
	printProfile(cmd.OutOrStdout(), p)
	return nil
}

func runProfileSuggestions(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageProfileSetup)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Skills: %s\n", strings.Join(commonSkills, ", "))
	fmt.Fprintf(out, "Roles:  %s\n", strings.Join(commonRoles, ", "))
	fmt.Fprintf(out, "\n%d skills are recognized in resumes; see `cvvin taxonomy`.\n", len(a.tax.Skills()))
	return nil
}

func printProfile(w io.Writer, p model.Profile) {
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%-20s %s\n", label+":", value)
	}
	row("Name", p.FullName)
	row("Email", p.Email)
	row("Phone", p.PhoneNumber)
	row("Qualification", p.Qualification)
	row("College", p.College)
	row("Current semester", p.CurrentSemester)
	row("Year of passing", p.YearOfPassing)
	row("Pursuing", p.CurrentlyPursuing)
	row("Skills", strings.Join(p.Skills, ", "))
	row("Interested roles", strings.Join(p.InterestedRoles, ", "))
	if p.Resume != nil {
		row("Resume", fmt.Sprintf("%s (%d bytes)", p.Resume.Name, p.Resume.Size))
	} else {
		row("Resume", "")
	}
	if p.ProfilePicture != nil {
		row("Picture", p.ProfilePicture.Name)
	} else {
		row("Picture", "")
	}
	status := "incomplete"
	if p.IsComplete {
		status = "complete"
	}
	row("Status", status)
	if !p.UpdatedAt.IsZero() {
		row("Updated", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
