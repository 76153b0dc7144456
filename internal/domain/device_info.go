package domain

// DeviceInfo holds the last values reported by the device. A nil field means
// the device has not reported it yet.
type DeviceInfo struct {
	IP         *string `json:"ip"`
	MACAddress *string `json:"mac_address"`
}

func (d DeviceInfo) WithIP(ip string) DeviceInfo {
	d.IP = &ip
	return d
}

func (d DeviceInfo) WithMACAddress(mac string) DeviceInfo {
	d.MACAddress = &mac
	return d
}

// IPOrDash renders the IP the way the console shows an unknown value.
func (d DeviceInfo) IPOrDash() string {
	return valueOrDash(d.IP)
}

func (d DeviceInfo) MACAddressOrDash() string {
	return valueOrDash(d.MACAddress)
}

func valueOrDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
