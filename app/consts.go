package app

const (
	ACTIONS_IFACE    = "org.gtk.Actions"
	ACTIONS_ACTIVATE = ACTIONS_IFACE + ".Activate"
	ACTIONS_CHANGED  = "Changed"

	DBUS_IFACE          = "org.freedesktop.DBus"
	DBUS_NAME_HAS_OWNER = DBUS_IFACE + ".NameHasOwner"
	DBUS_OWNER_CHANGED  = "NameOwnerChanged"
	DBUS_INTROSPECTABLE = DBUS_IFACE + ".Introspectable"

	ACTION_QUIT    = "quit"
	ACTION_RESTART = "restart"
	ACTION_ACK     = "ack"
)
