package main

import (
	"fmt"
	"strings"
)

// serviceData is the template input computed from a definition.
type serviceData struct {
	Package     string
	Name        string
	Description string
	UUID        string

	ServiceHandle string
	Chars         []charData
}

// charData describes one characteristic with its assigned handles.
type charData struct {
	Name        string
	LowerName   string
	UUIDHex     string
	Description string

	DeclHandle  string
	ValueHandle string
	CCCDHandle  string

	PropsExpr    string
	WriteCommand bool
	ClientConfig bool
}

// Generate renders the attribute table file for a service definition.
func Generate(def *RawServiceDef, pkg string) (string, error) {
	data := serviceData{
		Package:     pkg,
		Name:        def.Name,
		Description: def.Description,
		UUID:        def.UUID,
	}
	if data.Description == "" {
		data.Description = fmt.Sprintf("%s service", strings.ToLower(def.Name))
	}

	// Handles are assigned in declaration order: the service
	// declaration first, then declaration/value(/CCCD) per
	// characteristic.
	handle := uint16(1)
	next := func() string {
		h := fmt.Sprintf("0x%04X", handle)
		handle++
		return h
	}

	data.ServiceHandle = next()
	for _, c := range def.Characteristics {
		cd := charData{
			Name:         c.Name,
			LowerName:    strings.ToLower(c.Name),
			UUIDHex:      fmt.Sprintf("0x%04X", c.UUID),
			Description:  c.Description,
			DeclHandle:   next(),
			ValueHandle:  next(),
			PropsExpr:    propsExpr(c.Properties),
			WriteCommand: c.hasProperty("writeWithoutResponse"),
			ClientConfig: c.ClientConfig,
		}
		if c.ClientConfig {
			cd.CCCDHandle = next()
		}
		data.Chars = append(data.Chars, cd)
	}

	var b strings.Builder
	renderTemplate(&b, "service", data)
	return b.String(), nil
}

// propsExpr joins the property constants for a declaration value.
func propsExpr(props []string) string {
	consts := make([]string, len(props))
	for i, p := range props {
		consts[i] = knownProperties[p]
	}
	return strings.Join(consts, " | ")
}
