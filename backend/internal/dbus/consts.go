package dbus

// Standard D-Bus names
const (
	DBUS_INTERFACE = "org.freedesktop.DBus"
	DBUS_PATH      = "/org/freedesktop/DBus"

	BUS_NAME_HAS_OWNER  = DBUS_INTERFACE + ".NameHasOwner"
	BUS_GET_NAME_OWNER  = DBUS_INTERFACE + ".GetNameOwner"
	NAME_OWNER_CHANGED  = "NameOwnerChanged"
	DBUS_PROP_IFACE     = DBUS_INTERFACE + ".Properties"
	DBUS_INTROSPECTABLE = DBUS_INTERFACE + ".Introspectable"

	PROP_GET     = DBUS_PROP_IFACE + ".Get"
	PROP_GET_ALL = DBUS_PROP_IFACE + ".GetAll"
)
