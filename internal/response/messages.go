package response

// Level is the severity of a response message.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// Shared message codes.
const (
	MsgNoRecords              = 10000
	MsgAuditTrailMissing      = 10001
	MsgMandatoryFieldMissing  = 10002
	MsgEntityDoesNotExist     = 10003
	MsgHistoryFailed          = 10004
	MsgParentNotFound         = 10005
	MsgInvalidTimezone        = 10006
	MsgInvalidLocale          = 10007
	MsgInvalidDatetime        = 10008
	MsgInvalidTransactionCode = 10009
	MsgInvalidEmail           = 10010
	MsgInvalidURL             = 10011
)

// Person message codes.
const (
	MsgPersonListRetrieved = 20000
	MsgPersonRetrieved     = 20001
	MsgPersonCreated       = 20002
	MsgPersonDeleteFailed  = 20003
	MsgPersonDeleted       = 20004
	MsgPersonUpdateFailed  = 20005
	MsgPersonUpdated       = 20006
	MsgPersonCreateFailed  = 20007
)

// Address message codes.
const (
	MsgAddressListRetrieved = 20100
	MsgAddressRetrieved     = 20101
	MsgAddressCreated       = 20102
	MsgInvalidAddressType   = 20103
	MsgAddressDeleted       = 20104
	MsgAddressUpdateFailed  = 20105
	MsgAddressUpdated       = 20106
	MsgAddressDeleteFailed  = 20107
	MsgAddressCreateFailed  = 20108
	MsgInvalidPhoneNumber   = 20109
)

// User message codes.
const (
	MsgUserListRetrieved = 20200
	MsgUserRetrieved     = 20201
	MsgUserCreated       = 20202
	MsgUsernameInUse     = 20203
	MsgUserUpdateFailed  = 20204
	MsgUserUpdated       = 20205
	MsgUserDeleteFailed  = 20206
	MsgUserDeleted       = 20207
	MsgInvalidRole       = 20208
	MsgUserCreateFailed  = 20209
)

var catalog = map[int]string{
	MsgNoRecords:              "message_10000_no_records_returned",
	MsgAuditTrailMissing:      "message_10001_mandatory_audit_trail_information_missing",
	MsgMandatoryFieldMissing:  "message_10002_mandatory_service_input_field_missing",
	MsgEntityDoesNotExist:     "message_10003_specified_entity_does_not_exist",
	MsgHistoryFailed:          "message_10004_unable_to_create_historical_entity_record",
	MsgParentNotFound:         "message_10005_unable_to_locate_specified_parent_entity",
	MsgInvalidTimezone:        "message_10006_invalid_timezone_identifier",
	MsgInvalidLocale:          "message_10007_invalid_locale_code",
	MsgInvalidDatetime:        "message_10008_invalid_datetime_format",
	MsgInvalidTransactionCode: "message_10009_invalid_transaction_source_code",
	MsgInvalidEmail:           "message_10010_invalid_email_address_format",
	MsgInvalidURL:             "message_10011_invalid_url_format",

	MsgPersonListRetrieved: "message_20000_people_list_retrieved_successfully",
	MsgPersonRetrieved:     "message_20001_single_person_retrieved_successfully",
	MsgPersonCreated:       "message_20002_new_person_created_successfully",
	MsgPersonDeleteFailed:  "message_20003_unable_to_delete_person_record",
	MsgPersonDeleted:       "message_20004_person_deleted_successfully",
	MsgPersonUpdateFailed:  "message_20005_unable_to_update_person_record",
	MsgPersonUpdated:       "message_20006_person_updated_successfully",
	MsgPersonCreateFailed:  "message_20007_unable_to_create_person_record",

	MsgAddressListRetrieved: "message_20100_address_list_retrieved_successfully",
	MsgAddressRetrieved:     "message_20101_single_address_retrieved_successfully",
	MsgAddressCreated:       "message_20102_new_address_created_successfully",
	MsgInvalidAddressType:   "message_20103_invalid_address_type",
	MsgAddressDeleted:       "message_20104_address_deleted_successfully",
	MsgAddressUpdateFailed:  "message_20105_unable_to_update_address_record",
	MsgAddressUpdated:       "message_20106_address_updated_successfully",
	MsgAddressDeleteFailed:  "message_20107_unable_to_delete_address_record",
	MsgAddressCreateFailed:  "message_20108_unable_to_create_address_record",
	MsgInvalidPhoneNumber:   "message_20109_invalid_phone_number_format",

	MsgUserListRetrieved: "message_20200_user_list_retrieved_successfully",
	MsgUserRetrieved:     "message_20201_single_user_retrieved_successfully",
	MsgUserCreated:       "message_20202_new_user_created_successfully",
	MsgUsernameInUse:     "message_20203_username_already_in_use",
	MsgUserUpdateFailed:  "message_20204_unable_to_update_user_record",
	MsgUserUpdated:       "message_20205_user_updated_successfully",
	MsgUserDeleteFailed:  "message_20206_unable_to_delete_user_record",
	MsgUserDeleted:       "message_20207_user_deleted_successfully",
	MsgInvalidRole:       "message_20208_invalid_security_role",
	MsgUserCreateFailed:  "message_20209_unable_to_create_user_record",
}

// Text returns the catalog text for code, or an empty string if unknown.
func Text(code int) string {
	return catalog[code]
}
