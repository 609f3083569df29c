package stack

// Command names used in traces, metrics and test recorders.
const (
	CmdGetBDAddr              = "get_bt_address"
	CmdWriteAttribute         = "write_attribute"
	CmdSendUserWriteResponse  = "send_user_write_response"
	CmdNodeInit               = "node_init"
	CmdStartUnprovBeaconing   = "start_unprov_beaconing"
	CmdGenericClientInit      = "generic_client_init"
	CmdSceneClientInit        = "scene_client_init"
	CmdMeshLibInit            = "mesh_lib_init"
	CmdLPNInit                = "lpn_init"
	CmdLPNConfig              = "lpn_config"
	CmdLPNEstablishFriendship = "lpn_establish_friendship"
	CmdLPNTerminateFriendship = "lpn_terminate_friendship"
	CmdLPNDeinit              = "lpn_deinit"
	CmdCloseConnection        = "connection_close"
	CmdSetSoftTimer           = "set_soft_timer"
	CmdEraseAllSettings       = "flash_erase_all"
	CmdSystemReset            = "system_reset"
)

// CommandNames lists every command name in declaration order.
var CommandNames = []string{
	CmdGetBDAddr,
	CmdWriteAttribute,
	CmdSendUserWriteResponse,
	CmdNodeInit,
	CmdStartUnprovBeaconing,
	CmdGenericClientInit,
	CmdSceneClientInit,
	CmdMeshLibInit,
	CmdLPNInit,
	CmdLPNConfig,
	CmdLPNEstablishFriendship,
	CmdLPNTerminateFriendship,
	CmdLPNDeinit,
	CmdCloseConnection,
	CmdSetSoftTimer,
	CmdEraseAllSettings,
	CmdSystemReset,
}
