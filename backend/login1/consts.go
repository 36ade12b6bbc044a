package login1

const (
	LOGIN1_PREFIX    = "org.freedesktop.login1"
	LOGIN1_PATH      = "/org/freedesktop/login1"
	LOGIN1_INTERFACE = LOGIN1_PREFIX + ".Manager"

	LOGIN1_METHOD_LIST_INHIBITORS = LOGIN1_INTERFACE + ".ListInhibitors"

	LOGIN1_PROP_BLOCK_INHIBITED = "BlockInhibited"
	LOGIN1_PROP_DELAY_INHIBITED = "DelayInhibited"
)
