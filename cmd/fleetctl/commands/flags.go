package commands

import "strconv"

// optionalBool is a pflag.Value that leaves its target nil until set.
type optionalBool struct {
	target **bool
}

func newOptionalBool(target **bool) *optionalBool {
	return &optionalBool{target: target}
}

func (b *optionalBool) String() string {
	if b.target == nil || *b.target == nil {
		return ""
	}
	return strconv.FormatBool(**b.target)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.target = &v
	return nil
}

func (b *optionalBool) Type() string {
	return "bool"
}
