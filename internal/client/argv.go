package client

import (
	"strconv"

	"github.com/steveyegge/bdboard/internal/types"
	"github.com/steveyegge/bdboard/internal/validation"
)

// All bd argument vectors are built here and nowhere else, so the
// validation invariants hold in exactly one place: every embedded
// identifier goes through ValidateIssueID, every flag value through
// ValidateFlagValue, and every user-controlled positional is
// sanitized and placed after a "--" separator so bd cannot read it as
// a flag.

func argvList(limit int) []string {
	return []string{"list", "--json", "--limit", strconv.Itoa(limit)}
}

func argvShow(ids ...string) ([]string, error) {
	argv := []string{"show", "--json"}
	for _, id := range ids {
		if err := validation.ValidateIssueID(id); err != nil {
			return nil, err
		}
		argv = append(argv, id)
	}
	return argv, nil
}

func argvCreate(f CreateFields) ([]string, error) {
	argv := []string{"create", "--json", "--priority", strconv.Itoa(f.Priority)}
	if f.IssueType != "" {
		argv = append(argv, "--type", string(f.IssueType))
	}
	textFlags := []struct {
		flag string
		val  string
	}{
		{"--description", f.Description},
		{"--design", f.Design},
		{"--acceptance", f.AcceptanceCriteria},
		{"--notes", f.Notes},
		{"--assignee", f.Assignee},
	}
	for _, tf := range textFlags {
		if tf.val == "" {
			continue
		}
		val := validation.SanitizeArg(tf.val)
		if err := validation.ValidateFlagValue(val, tf.flag[2:]); err != nil {
			return nil, err
		}
		argv = append(argv, tf.flag, val)
	}
	for _, l := range f.Labels {
		l = validation.SanitizeArg(l)
		if err := validation.ValidateFlagValue(l, "label"); err != nil {
			return nil, err
		}
		argv = append(argv, "--label", l)
	}
	argv = append(argv, "--", validation.SanitizeArg(f.Title))
	return argv, nil
}

func argvUpdate(id string, f UpdateFields) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	argv := []string{"update", id, "--json"}
	addText := func(flag string, val *string) error {
		if val == nil {
			return nil
		}
		v := validation.SanitizeArg(*val)
		if err := validation.ValidateFlagValue(v, flag[2:]); err != nil {
			return err
		}
		argv = append(argv, flag, v)
		return nil
	}
	if err := addText("--title", f.Title); err != nil {
		return nil, err
	}
	if err := addText("--description", f.Description); err != nil {
		return nil, err
	}
	if err := addText("--design", f.Design); err != nil {
		return nil, err
	}
	if err := addText("--acceptance", f.AcceptanceCriteria); err != nil {
		return nil, err
	}
	if err := addText("--notes", f.Notes); err != nil {
		return nil, err
	}
	if err := addText("--assignee", f.Assignee); err != nil {
		return nil, err
	}
	if f.Priority != nil {
		argv = append(argv, "--priority", strconv.Itoa(*f.Priority))
	}
	if f.IssueType != nil {
		argv = append(argv, "--type", string(*f.IssueType))
	}
	if f.Status != nil {
		argv = append(argv, "--status", string(*f.Status))
	}
	return argv, nil
}

func argvLabel(action, id, label string) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	label = validation.SanitizeArg(label)
	if err := validation.ValidateFlagValue(label, "label"); err != nil {
		return nil, err
	}
	return []string{"label", action, id, "--", label}, nil
}

func argvDepAdd(id, otherID string, depType types.DependencyType) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	if err := validation.ValidateIssueID(otherID); err != nil {
		return nil, err
	}
	if err := validation.ValidateFlagValue(string(depType), "dependency type"); err != nil {
		return nil, err
	}
	if !depType.IsValid() {
		return nil, &validation.InvalidInputError{Field: "dependency type", Value: string(depType), Reason: "empty or too long"}
	}
	return []string{"dep", "add", id, otherID, "--type", string(depType)}, nil
}

func argvDepRemove(id, otherID string) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	if err := validation.ValidateIssueID(otherID); err != nil {
		return nil, err
	}
	return []string{"dep", "remove", id, otherID}, nil
}

func argvCommentAdd(id, text, author string) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	argv := []string{"comment", "add", id}
	if author != "" {
		author = validation.SanitizeArg(author)
		if err := validation.ValidateFlagValue(author, "author"); err != nil {
			return nil, err
		}
		argv = append(argv, "--author", author)
	}
	argv = append(argv, "--", validation.SanitizeArg(text))
	return argv, nil
}

func argvComments(id string) ([]string, error) {
	if err := validation.ValidateIssueID(id); err != nil {
		return nil, err
	}
	return []string{"comments", id, "--json"}, nil
}

func argvStats() []string {
	return []string{"stats", "--json"}
}

func argvHealth() []string {
	return []string{"health", "--json"}
}
