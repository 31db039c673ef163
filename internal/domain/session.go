package domain

import "time"

// NetworkContext describe desde donde se hizo login o logout.
// Los campos geo quedan vacios cuando el dataset local no tiene datos;
// eso nunca es un error.
type NetworkContext struct {
	IPAddress  string   `json:"ip_address,omitempty"`
	Country    string   `json:"country,omitempty"`
	Region     string   `json:"region,omitempty"`
	City       string   `json:"city,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Long       *float64 `json:"long,omitempty"`
	DeviceInfo string   `json:"device_info,omitempty"`
}

// Session es un tramo login-logout de un usuario. LogoutAt y LogoutInfo
// son nulos exactamente hasta que la sesion se cierra, y se escriben una
// sola vez.
type Session struct {
	SessionID  int64           `json:"session_id"`
	UserID     string          `json:"user_id"`
	LoginAt    time.Time       `json:"login_at"`
	LogoutAt   *time.Time      `json:"logout_at,omitempty"`
	LoginInfo  NetworkContext  `json:"login_info"`
	LogoutInfo *NetworkContext `json:"logout_info,omitempty"`
}
