package chat

import "regexp"

var (
	data1Pattern = regexp.MustCompile(`DATA1:\s*"([^"]*)"`)
	data2Pattern = regexp.MustCompile(`DATA2:\s*"([^"]*)"`)
)

// CharacterInfo accumulates the display names resolved while the character
// processor runs. One instance lives for one request.
type CharacterInfo struct {
	CharacterName string
	UserName      string
	UserNames     []string
}

// NewCharacterInfo returns the defaults used when no names are declared.
func NewCharacterInfo() *CharacterInfo {
	return &CharacterInfo{
		CharacterName: "Character",
		UserName:      "User",
	}
}

// ExtractFromContent scans content for DATA1/DATA2 name declarations.
// The first match of each wins; absence keeps the current values.
func (c *CharacterInfo) ExtractFromContent(content string) {
	if m := data1Pattern.FindStringSubmatch(content); m != nil {
		c.CharacterName = m[1]
	}
	if m := data2Pattern.FindStringSubmatch(content); m != nil {
		c.UserName = m[1]
		c.AddUserName(m[1])
	}
}

// AddUserName records a user name once, preserving first-seen order.
func (c *CharacterInfo) AddUserName(name string) {
	if name == "" {
		return
	}
	for _, existing := range c.UserNames {
		if existing == name {
			return
		}
	}
	c.UserNames = append(c.UserNames, name)
}

// PrimaryUserName returns the first recorded user name, or the fallback.
func (c *CharacterInfo) PrimaryUserName() string {
	if len(c.UserNames) > 0 {
		return c.UserNames[0]
	}
	return c.UserName
}

// HasMultipleUsers reports whether more than one user name was recorded.
func (c *CharacterInfo) HasMultipleUsers() bool {
	return len(c.UserNames) > 1
}
