package rpc

import (
	"context"
)

type sendMessageParams struct {
	Message string `json:"message"`
}

type processImageParams struct {
	ImageData string `json:"image_data"`
	Source    string `json:"source,omitempty"`
}

func (d *Dispatcher) registerChatMethods() {
	d.RegisterHandler("chat.sendMessage", d.chatSendMessage)
	d.RegisterHandler("chat.getHistory", d.chatGetHistory)
	d.RegisterHandler("chat.interrupt", d.chatInterrupt)
	d.RegisterHandler("vision.processImage", d.visionProcessImage)
}

func (d *Dispatcher) chatSendMessage(ctx context.Context, call *Call) (any, error) {
	var p sendMessageParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.Message == "" {
		return nil, NewError(CodeInvalidParams, "message must not be empty")
	}

	reply, err := d.deps.Chat.ReceiveMessageFromUser(ctx, p.Message)
	if err != nil {
		return nil, NewError(CodeChatError, "%s", err.Error())
	}
	return map[string]any{"reply": reply}, nil
}

func (d *Dispatcher) chatGetHistory(ctx context.Context, call *Call) (any, error) {
	return map[string]any{"messages": d.deps.Chat.History()}, nil
}

func (d *Dispatcher) chatInterrupt(ctx context.Context, call *Call) (any, error) {
	return map[string]any{"interrupted": d.deps.Chat.Interrupt()}, nil
}

func (d *Dispatcher) visionProcessImage(ctx context.Context, call *Call) (any, error) {
	var p processImageParams
	if err := unmarshalParams(call.Params, &p); err != nil {
		return nil, err
	}
	if p.ImageData == "" {
		return nil, NewError(CodeInvalidParams, "image_data must not be empty")
	}

	description, err := d.deps.Chat.ProcessImage(ctx, p.ImageData, p.Source)
	if err != nil {
		return nil, NewError(CodeActionFailed, "%s", err.Error())
	}
	return map[string]any{"description": description}, nil
}
