package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records for a device announcement.
func EncodeTXT(a *Announcement) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyDeviceID] = a.DeviceID.String()
	txt[TXTKeyProtocolVersion] = strconv.FormatUint(uint64(a.ProtocolVersion), 10)
	txt[TXTKeyServiceUUID] = a.ServiceUUID

	// Optional fields
	if a.DeviceName != "" {
		txt[TXTKeyDeviceName] = a.DeviceName
	}

	return txt
}

// DecodeTXT parses the TXT records of a device announcement.
func DecodeTXT(txt TXTRecordMap) (*Announcement, error) {
	a := &Announcement{}

	// Parse device ID (required)
	idStr, ok := txt[TXTKeyDeviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("%w: device ID %q", ErrInvalidTXTRecord, idStr)
	}
	a.DeviceID = id

	// Parse protocol version (required)
	pvStr, ok := txt[TXTKeyProtocolVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyProtocolVersion)
	}
	pv, err := strconv.ParseUint(pvStr, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: protocol version %q", ErrInvalidTXTRecord, pvStr)
	}
	a.ProtocolVersion = uint8(pv)

	// Parse service UUID (required)
	a.ServiceUUID, ok = txt[TXTKeyServiceUUID]
	if !ok || a.ServiceUUID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyServiceUUID)
	}

	// Optional fields
	a.DeviceName = txt[TXTKeyDeviceName]

	return a, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries expect.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
