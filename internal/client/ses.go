// AWS SES 이메일 프로바이더 정의
//
// 자격 증명은 기본 체인(IAM 역할, 환경변수 등)으로 로드한다.

package client

import (
	"context"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESProvider 구조체 정의
type SESProvider struct {
	client *sesv2.Client
}

func NewSESProvider() *SESProvider {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Printf("AWS 설정 로드 실패 - ses 프로바이더 비활성: %v", err)
		return &SESProvider{}
	}
	return &SESProvider{client: sesv2.NewFromConfig(cfg)}
}

func (p *SESProvider) Name() string { return "ses" }

func (p *SESProvider) IsConfigured() bool {
	return p.client != nil
}

// Send - SES SendEmail API로 이메일 전송
func (p *SESProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.client == nil {
		return fmt.Errorf("ses client not initialized")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	var body types.Body
	if req.HTML != "" {
		body.Html = &types.Content{Data: &req.HTML}
	}
	if req.Text != "" {
		body.Text = &types.Content{Data: &req.Text}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: &req.From,
		Destination: &types.Destination{
			ToAddresses: req.To,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &req.Subject},
				Body:    &body,
			},
		},
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	log.Printf("email sent provider=ses id=%s to=%v", *result.MessageId, req.To)
	return nil
}
