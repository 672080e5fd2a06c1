package ws

import "encoding/json"

func Deserialize(jsonBytes []byte) (Message, error) {
	var wrapper SerializedMessage
	if err := json.Unmarshal(jsonBytes, &wrapper); err != nil {
		return nil, err
	}

	return DeserializeSerializedMessage(&wrapper)
}

func DeserializeSerializedMessage(wrapper *SerializedMessage) (Message, error) {
	msg, err := CreateMessage(wrapper.Event, typeRegistry)
	if err != nil {
		return nil, err
	}

	if err := FromJson(wrapper.Data, msg); err != nil {
		return nil, err
	}

	return msg, nil
}
